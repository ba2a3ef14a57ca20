package enrichment

import (
	"github.com/mssola/user_agent"
)

type UAInfo struct {
	Browser        string
	BrowserVersion string
	OS             string
	DeviceType     string
	IsMobile       bool
	IsBot          bool
}

func ParseUserAgent(uaString string) *UAInfo {
	if uaString == "" {
		return &UAInfo{DeviceType: "unknown"}
	}

	ua := user_agent.New(uaString)

	browser, version := ua.Browser()
	deviceType := "desktop"

	if ua.Bot() {
		deviceType = "bot"
	} else if ua.Mobile() {
		deviceType = "mobile"
	}

	return &UAInfo{
		Browser:        browser,
		BrowserVersion: version,
		OS:             ua.OS(),
		DeviceType:     deviceType,
		IsMobile:       ua.Mobile(),
		IsBot:          ua.Bot(),
	}
}
