package domain

import "time"

// Catálogo de presets por classe de rota.
//
// Login e register têm quotas apertadas contra brute-force; login usa
// RewardOnSuccess para não penalizar quem autentica corretamente.
const (
	PresetAPI      = "api"
	PresetChat     = "chat"
	PresetAdmin    = "admin"
	PresetLogin    = "login"
	PresetRegister = "register"
)

var presets = map[string]QuotaConfig{
	PresetAPI: {
		Points:    100,
		Window:    60 * time.Second,
		Block:     60 * time.Second,
		Namespace: "api",
	},
	PresetChat: {
		Points:    30,
		Window:    60 * time.Second,
		Block:     120 * time.Second,
		Namespace: "chat",
	},
	PresetAdmin: {
		Points:    200,
		Window:    60 * time.Second,
		Block:     30 * time.Second,
		Namespace: "admin",
	},
	PresetLogin: {
		Points:          5,
		Window:          60 * time.Second,
		Block:           900 * time.Second,
		Namespace:       "login",
		RewardOnSuccess: true,
	},
	PresetRegister: {
		Points:    3,
		Window:    3600 * time.Second,
		Block:     3600 * time.Second,
		Namespace: "register",
	},
}

// Preset retorna a config nomeada do catálogo.
func Preset(name string) (QuotaConfig, bool) {
	cfg, ok := presets[name]
	return cfg, ok
}

// Presets retorna uma cópia do catálogo (o original é imutável).
func Presets() map[string]QuotaConfig {
	out := make(map[string]QuotaConfig, len(presets))
	for name, cfg := range presets {
		out[name] = cfg
	}
	return out
}
