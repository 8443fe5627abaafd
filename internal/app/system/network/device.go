package network

import (
	"strings"

	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/mssola/useragent"
)

// DeviceType classifies a User-Agent string as desktop, mobile, tablet or bot.
func DeviceType(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return models.DeviceUnknown
	}

	ua := useragent.New(userAgent)
	if ua.Bot() {
		return models.DeviceBot
	}

	lower := strings.ToLower(userAgent)
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")) {
		return models.DeviceTablet
	}
	if ua.Mobile() {
		return models.DeviceMobile
	}
	return models.DeviceDesktop
}
