package checkout

import (
	"strings"

	"github.com/nikolayk812/coursecart/internal/domain"
)

var vervePrefixes = []string{"5060", "5061", "5078", "6500", "6501"}

// DetectNetwork classifies a card number by its prefix. Every non-digit is
// ignored, so both raw and display-formatted numbers work.
func DetectNetwork(number string) domain.CardNetwork {
	digits := digitsOnly(number)

	switch {
	case strings.HasPrefix(digits, "4"):
		return domain.NetworkVisa
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return domain.NetworkMastercard
	}

	for _, prefix := range vervePrefixes {
		if strings.HasPrefix(digits, prefix) {
			return domain.NetworkVerve
		}
	}

	return domain.NetworkNone
}
