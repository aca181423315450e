package config

type App struct {
	Port         string `env:"APP_PORT" default:"8080"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	JWTSecret    string `env:"JWT_SECRET,required"`
	StripeAPIKey string `env:"STRIPE_API_KEY,required"`
	BaseURL      string `env:"BASE_URL" default:"http://localhost:8080"`
	Env          string `env:"APP_ENV" default:"dev"`
}
