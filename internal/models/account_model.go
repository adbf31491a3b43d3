package models

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedin  = "linkedin"
	PlatformTwitter   = "twitter"
)

// AccountTarget is one entry of the fixed table of known social accounts.
type AccountTarget struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// PlatformRank fixes the dispatch order: Facebook first so the shared
// attachment is created up front, Twitter last.
func PlatformRank(platform string) int {
	switch platform {
	case PlatformFacebook:
		return 0
	case PlatformInstagram:
		return 1
	case PlatformLinkedin:
		return 2
	case PlatformTwitter:
		return 3
	default:
		return 4
	}
}
