package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	APIKey string `envconfig:"API_KEY"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQP struct {
		URL   string `envconfig:"AMQP_URL"`
		Queue string `envconfig:"AMQP_QUEUE" default:"optimize_jobs"`
	} `envconfig:""`

	Queues struct {
		Optimize string `envconfig:"OPTIMIZE_QUEUE_KEY" default:"optimize_jobs"`
	} `envconfig:""`

	MetricsCSV string `envconfig:"METRICS_CSV_FILE" default:"post_metrics.csv"`

	OpenAI struct {
		APIKey         string `envconfig:"OPENAI_API_KEY"`
		BaseURL        string `envconfig:"OPENAI_BASE_URL"`
		Model          string `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		TimeoutSeconds int    `envconfig:"OPENAI_TIMEOUT_SECONDS" default:"30"`
	} `envconfig:""`

	Slack struct {
		WebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_ALERT_CHAT_ID"`
	} `envconfig:""`

	// Pipeline задаёт правила хаус-стайла для оптимизации текста.
	Pipeline struct {
		MaxHashtags      int      `envconfig:"MAX_HASHTAGS" default:"3"`
		MinWords         int      `envconfig:"MIN_WORDS" default:"50"`
		MaxWords         int      `envconfig:"MAX_WORDS" default:"100"`
		ApplyCorrection  bool     `envconfig:"APPLY_GRAMMAR_CORRECTION" default:"true"`
		CTASentence      string   `envconfig:"CTA_SENTENCE" default:"Learn more and join the movement!"`
		CTAPhrases       []string `envconfig:"CTA_PHRASES" default:"follow,subscribe,learn more,click,visit,try,join,buy,shop"`
		TrendingKeywords []string `envconfig:"TRENDING_KEYWORDS" default:"AI,Automation,Digital,Marketing,Innovation,Technology"`
		TrendingHashtags []string `envconfig:"TRENDING_HASHTAGS" default:"#AI,#Marketing,#Innovation,#Digital,#Automation,#Tech"`
	} `envconfig:""`

	// Lexicon задаёт словари тональности контура метрик.
	Lexicon struct {
		PositiveWords []string `envconfig:"POSITIVE_WORDS" default:"great,good,love,amazing,excellent,nice,wow,super,fantastic,awesome,happy"`
		NegativeWords []string `envconfig:"NEGATIVE_WORDS" default:"bad,hate,poor,terrible,worst,boring,awful,angry,sad,disappointing"`
	} `envconfig:""`

	// Alerts задаёт пороги алёрт-политики.
	Alerts struct {
		HighCTR        float64 `envconfig:"ALERT_HIGH_CTR" default:"0.10"`
		HighEngagement float64 `envconfig:"ALERT_HIGH_ENGAGEMENT" default:"0.15"`
		LowCTR         float64 `envconfig:"ALERT_LOW_CTR" default:"0.02"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
