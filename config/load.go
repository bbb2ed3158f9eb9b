package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func Load() App {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on process env")
	}

	cfg := App{
		Port:         getenv("APP_PORT", "8080"),
		DatabaseURL:  must("DATABASE_URL"),
		JWTSecret:    getenv("JWT_SECRET", "local_dev_secret"),
		KhaltiKey:    os.Getenv("KHALTI_SECRET_KEY"),
		EsewaCode:    getenv("ESEWA_PRODUCT_CODE", "EPAYTEST"),
		EsewaKey:     os.Getenv("ESEWA_SECRET_KEY"),
		CallbackBase: getenv("PAYMENT_CALLBACK_BASE", "http://localhost:8080"),
		Env:          getenv("APP_ENV", "dev"),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
