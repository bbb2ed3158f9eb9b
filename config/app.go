package config

type App struct {
	Port         string
	DatabaseURL  string
	JWTSecret    string
	KhaltiKey    string
	EsewaCode    string
	EsewaKey     string
	CallbackBase string
	Env          string
}
