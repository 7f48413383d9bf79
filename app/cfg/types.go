package cfg

type Cfg struct {
	// Storage configuration
	DBPath             string
	TokenEncryptionKey string
	SitesFile          string

	// HTTP configuration
	Port          string
	BaseUrl       string
	DashboardPath string
	APIAccessKey  string
	Production    bool

	// Facebook application
	FacebookAppID       string
	FacebookAppSecret   string
	FacebookRedirectURI string
	FacebookGraphURL    string
	FacebookDialogURL   string
	FacebookAPIVersion  string
	StateSecret         string

	// Text generation
	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// Pipeline
	RedisAddr        string
	WorkerCount      int
	TestPostInterval int
	ExtractContent   bool
	FetchTimeout     int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// FacebookConfigured reports whether a real OAuth handshake can be attempted.
func (c *Cfg) FacebookConfigured() bool {
	return c.FacebookAppID != "" && c.FacebookAppSecret != "" && c.FacebookRedirectURI != ""
}
