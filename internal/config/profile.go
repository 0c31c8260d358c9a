package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Profile is the bot's deployment record: where to post, which API key to use
// and the variant data (overrides, triggers) that used to be hard-coded.
type Profile struct {
	Timezone    string            `validate:"required"`
	APIKey      string            `validate:"required"`
	GroupID     string            `validate:"required"`
	IgnoreID    string            `validate:"omitempty"`
	District    string            `validate:"required,alphanum"`
	AllowList   []int             `validate:"dive,gt=0"`
	Overrides   map[string]string `validate:"dive,keys,numeric,endkeys,numeric"`
	Rules       []RuleSpec        `validate:"dive"`
	SendDelayMs int               `validate:"gte=0"`

	location *time.Location
}

type RuleSpec struct {
	Name     string   `mapstructure:"name" validate:"required"`
	Contains []string `mapstructure:"contains" validate:"dive,required"`
	OrLacks  []string `mapstructure:"or_lacks" validate:"dive,required"`
	Unless   []string `mapstructure:"unless" validate:"dive,required"`
	Replies  []string `mapstructure:"replies" validate:"min=1,dive,required"`
}

var profileValidator = validator.New()

func LoadProfile(path string) (Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("district", DefaultDistrict)
	v.SetDefault("send_delay_ms", DefaultSendDelayMs)
	if err := v.BindEnv("tbapi", "TBA_API_KEY"); err != nil {
		return Profile{}, err
	}
	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	profile := Profile{
		Timezone:    strings.TrimSpace(v.GetString("timezone")),
		APIKey:      strings.TrimSpace(v.GetString("tbapi")),
		GroupID:     strings.TrimSpace(v.GetString("wgp")),
		IgnoreID:    strings.TrimSpace(v.GetString("ignore")),
		District:    strings.TrimSpace(v.GetString("district")),
		AllowList:   DefaultAllowList(),
		Overrides:   DefaultOverrides(),
		Rules:       DefaultRules(),
		SendDelayMs: v.GetInt("send_delay_ms"),
	}
	if v.IsSet("allow_list") {
		profile.AllowList = v.GetIntSlice("allow_list")
	}
	if v.IsSet("overrides") {
		profile.Overrides = v.GetStringMapString("overrides")
	}
	if v.IsSet("rules") {
		var rules []RuleSpec
		if err := v.UnmarshalKey("rules", &rules); err != nil {
			return Profile{}, fmt.Errorf("parse rules: %w", err)
		}
		profile.Rules = rules
	}

	if err := profile.Finalize(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Finalize validates the profile and resolves its timezone. It must be called
// on any Profile not built by LoadProfile.
func (p *Profile) Finalize() error {
	if err := profileValidator.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	for _, rule := range p.Rules {
		if len(rule.Contains) == 0 && len(rule.OrLacks) == 0 {
			return fmt.Errorf("rule %q needs contains or or_lacks", rule.Name)
		}
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", p.Timezone, err)
	}
	p.location = loc
	return nil
}

func (p Profile) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

func (p Profile) SendDelay() time.Duration {
	return time.Duration(p.SendDelayMs) * time.Millisecond
}
