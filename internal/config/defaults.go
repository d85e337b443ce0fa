package config

import "time"

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Store:     StoreConfig{Backend: "sqlite", DSN: "file:priceradar.db?_pragma=busy_timeout(5000)", Migrate: true},
		Scheduler: SchedulerConfig{Interval: 30 * time.Minute, Timezone: defaultTimezone, location: defaultLocation()},
		Discovery: DiscoveryConfig{
			AdapterTimeout:      10 * time.Second,
			FallbackThreshold:   5,
			CacheTTL:            15 * time.Minute,
			CacheSize:           512,
			SimilarityThreshold: 0.75,
		},
		Alerts: AlertsConfig{Concurrency: 4, DefaultOwner: "local"},
		Trust: TrustConfig{
			Default: 50,
			Priors: map[string]int{
				"amazon":   70,
				"flipkart": 70,
				"croma":    75,
				"reliance": 75,
				"tatacliq": 75,
				"snapdeal": 40,
			},
			TrustedSellers: []string{"Appario", "Cloudtail", "RetailNet", "Corseca"},
		},
		Notifications: NotificationConfig{
			Channels: []string{"events"},
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
			Email:    EmailConfig{Port: 587, PoolSize: 2, SendTimeout: 10 * time.Second},
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You extract product specifications from retail listing titles.",
			Timeout:      20 * time.Second,
		},
		Signals:   SignalsConfig{Timeout: 10 * time.Second},
		Telemetry: TelemetryConfig{ServiceName: "priceradar"},
		Browser:   BrowserConfig{Settle: 2 * time.Second},
		Sites:     defaultSites(),
	}
}

func defaultSites() []SiteConfig {
	return []SiteConfig{
		{
			Name:      "amazon",
			Kind:      KindHTML,
			SearchURL: "https://www.amazon.in/s?k={query}",
			BaseURL:   "https://www.amazon.in",
			Timeout:   10 * time.Second,
			RateLimit: 1,
			Burst:     1,
			Selectors: SelectorConfig{
				Item:   `.s-result-item[data-component-type="s-search-result"]`,
				Title:  "h2 span",
				Price:  ".a-price .a-offscreen, .a-price-whole",
				Link:   "a.a-link-normal",
				Image:  "img.s-image",
				Rating: ".a-icon-star-small .a-icon-alt",
			},
		},
		{
			Name:      "flipkart",
			Kind:      KindHTML,
			SearchURL: "https://www.flipkart.com/search?q={query}",
			BaseURL:   "https://www.flipkart.com",
			Timeout:   10 * time.Second,
			RateLimit: 1,
			Burst:     1,
			Selectors: SelectorConfig{
				Item:   "div[data-id]",
				Title:  "div.KzDlHZ, a.wjcEIp, a.s1Q9rs, div._4rR01T, .IRpwTa",
				Price:  "div.Nx9bqj, div._30jeq3",
				Link:   "a[href]",
				Image:  "img",
				Rating: "div.XQDdHH, div._3LWZlK",
			},
		},
		{
			Name:      "croma",
			Kind:      KindBrowser,
			Fallback:  true,
			SearchURL: "https://www.croma.com/searchB?q={query}",
			BaseURL:   "https://www.croma.com",
			Timeout:   20 * time.Second,
			Selectors: SelectorConfig{
				Item:    "li.product-item",
				Title:   "h3.product-title a",
				Price:   "span.amount",
				Link:    "h3.product-title a",
				Image:   "img",
				WaitFor: "li.product-item",
			},
		},
		{
			Name:      "tatacliq",
			Kind:      KindJSON,
			SearchURL: "https://www.tatacliq.com/marketplacewebservices/v2/mpl/products/searchProducts/?searchText={query}:relevance:inStockFlag:true&channel=WEB&isTextSearch=true&page=0&isPwa=true&pageSize=40&typeID=all",
			BaseURL:   "https://www.tatacliq.com",
			Timeout:   10 * time.Second,
			RateLimit: 1,
			Burst:     1,
			Fields: FieldConfig{
				Items:  "searchresult",
				Title:  "productname",
				Price:  "price.sellingPrice.value|price.value",
				Link:   "webURL",
				Image:  "imageURL",
				Rating: "averageRating",
			},
		},
		{
			Name:      "reliance",
			Kind:      KindJSON,
			Fallback:  true,
			SearchURL: "https://www.reliancedigital.in/rildigitalws/v2/rrldigital/cms/pagedata?pageType=searchPage&q={query}",
			BaseURL:   "https://www.reliancedigital.in",
			Timeout:   5 * time.Second,
			Fields: FieldConfig{
				Items:  "productListData",
				Title:  "name|productName",
				Price:  "price.value|finalPrice",
				Link:   "url",
				Image:  "plpImage|image",
				Rating: "averageRating",
			},
		},
	}
}
