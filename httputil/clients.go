package httputil

import (
	"net/http"
	"net/url"
	"time"

	"portal_leads/config"
)

type Clients struct {
	Portal *http.Client // listing platform APIs, optionally proxied
	CRM    *http.Client // Bitrix webhook
	Media  *http.Client // call recording downloads
}

func NewClients(portalCfg *config.PortalConfig) *Clients {
	portal := &http.Client{Timeout: 30 * time.Second}

	if portalCfg != nil && portalCfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(portalCfg.ProxyURL); err == nil {
			portal.Transport = &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			}
		}
	}

	return &Clients{
		Portal: portal,
		CRM:    &http.Client{Timeout: 30 * time.Second},
		// Longer timeout for recording downloads
		Media: &http.Client{Timeout: 60 * time.Second},
	}
}
