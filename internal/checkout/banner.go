package checkout

import "net/url"

// Banner is the one-time notice shown after returning from the payment page.
type Banner string

const (
	BannerNone    Banner = ""
	BannerSuccess Banner = "success"
	BannerCancel  Banner = "cancel"
)

// StatusParam is the query parameter the payment page redirects back with.
const StatusParam = "checkout"

// BannerFromQuery derives the banner from the page's query string. It is
// recomputed on every render.
func BannerFromQuery(q url.Values) Banner {
	switch Banner(q.Get(StatusParam)) {
	case BannerSuccess:
		return BannerSuccess
	case BannerCancel:
		return BannerCancel
	default:
		return BannerNone
	}
}
