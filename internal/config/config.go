package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-session-service/internal/app"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"` // pool cache lifetime
	} `yaml:"questions"`
	Game GameConfig `yaml:"game"`
}

// GameConfig carries the session tunables; zero values fall back to the
// stock rules.
type GameConfig struct {
	SessionLength       int     `yaml:"sessionLength"`
	SpareQuestions      int     `yaml:"spareQuestions"`
	QuestionTime        string  `yaml:"questionTime"`
	StartBonus          int     `yaml:"startBonus"`
	LifelineCap         int     `yaml:"lifelineCap"`
	ContinueWrongCost   int     `yaml:"continueWrongCost"`
	ContinueTimeoutCost int     `yaml:"continueTimeoutCost"`
	SwipeThreshold      float64 `yaml:"swipeThreshold"`
	SwipeDamping        float64 `yaml:"swipeDamping"`
	StartingCoins       int     `yaml:"startingCoins"`
	StartingLives       int     `yaml:"startingLives"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Rules converts the game section into normalized engine rules.
func (c Config) Rules() app.Rules {
	g := c.Game
	return app.Rules{
		SessionLength:       g.SessionLength,
		SpareQuestions:      g.SpareQuestions,
		QuestionTime:        TTLDuration(g.QuestionTime, 0),
		StartBonus:          g.StartBonus,
		LifelineCap:         g.LifelineCap,
		ContinueWrongCost:   g.ContinueWrongCost,
		ContinueTimeoutCost: g.ContinueTimeoutCost,
		SwipeThreshold:      g.SwipeThreshold,
		SwipeDamping:        g.SwipeDamping,
	}.Normalize()
}

// StartingCoins returns the configured or default signup balance.
func (c Config) StartingCoins() int {
	if c.Game.StartingCoins == 0 {
		return 100
	}
	return c.Game.StartingCoins
}

// StartingLives returns the configured or default life count.
func (c Config) StartingLives() int {
	if c.Game.StartingLives == 0 {
		return 3
	}
	return c.Game.StartingLives
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
