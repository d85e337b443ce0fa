package parser

import (
	"net/url"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"PriceRadar/internal/config"
)

// newSiteClient builds a resty client shaped like a desktop browser. The
// proxy goes on the plain transport before the Cloudflare wrapper hides it.
func newSiteClient(site config.SiteConfig, base *url.URL, accept string) *resty.Client {
	client := resty.New()
	if site.Proxy != "" {
		client.SetProxy(site.Proxy)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeaders(map[string]string{
		"User-Agent":      userAgent,
		"Accept":          accept,
		"Accept-Language": "en-IN,en;q=0.9",
		"Referer":         base.String(),
	})
	client.SetHeaders(site.Headers)
	if site.Timeout > 0 {
		client.SetTimeout(site.Timeout)
	}

	if site.RateLimit > 0 {
		burst := site.Burst
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(site.RateLimit), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	return client
}
