package entity

import "fmt"

// FlowerTheme 界面花卉主题
type FlowerTheme struct {
	ID         string `json:"id"`
	NameEN     string `json:"name_en"`
	NameZH     string `json:"name_zh"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"bg"`
}

// FlowerThemes 可选主题
var FlowerThemes = []FlowerTheme{
	{ID: "nordic_lotus", NameEN: "Nordic Lotus", NameZH: "北境蓮華", Primary: "#7FB3D5", Secondary: "#F5CBA7", Accent: "#82E0AA", Background: "#F4F6F7"},
	{ID: "polar_rose", NameEN: "Polar Rose", NameZH: "極地玫瑰", Primary: "#EC7063", Secondary: "#FADBD8", Accent: "#AF7AC5", Background: "#FDFEFE"},
	{ID: "midnight_orchid", NameEN: "Midnight Orchid", NameZH: "午夜蘭花", Primary: "#8E44AD", Secondary: "#D2B4DE", Accent: "#F1C40F", Background: "#1A1B26"},
	{ID: "aurora_lily", NameEN: "Aurora Lily", NameZH: "極光百合", Primary: "#48C9B0", Secondary: "#A3E4D7", Accent: "#F7DC6F", Background: "#F0F3F4"},
}

// Preferences 会话展示偏好，服务端只做存储
type Preferences struct {
	Language  string `json:"language"`
	ThemeMode string `json:"theme_mode"`
	FlowerID  string `json:"current_flower_id"`
}

// DefaultPreferences 默认偏好
func DefaultPreferences() Preferences {
	return Preferences{Language: "en", ThemeMode: "light", FlowerID: FlowerThemes[0].ID}
}

// PreferencesPatch 偏好的部分更新
type PreferencesPatch struct {
	Language  *string
	ThemeMode *string
	FlowerID  *string
}

// Apply 校验并应用部分更新
func (p Preferences) Apply(patch PreferencesPatch) (Preferences, error) {
	if patch.Language != nil {
		switch *patch.Language {
		case "en", "zh":
			p.Language = *patch.Language
		default:
			return p, fmt.Errorf("unsupported language %q", *patch.Language)
		}
	}
	if patch.ThemeMode != nil {
		switch *patch.ThemeMode {
		case "light", "dark":
			p.ThemeMode = *patch.ThemeMode
		default:
			return p, fmt.Errorf("unsupported theme mode %q", *patch.ThemeMode)
		}
	}
	if patch.FlowerID != nil {
		if !isFlowerTheme(*patch.FlowerID) {
			return p, fmt.Errorf("unknown flower theme %q", *patch.FlowerID)
		}
		p.FlowerID = *patch.FlowerID
	}
	return p, nil
}

func isFlowerTheme(id string) bool {
	for _, t := range FlowerThemes {
		if t.ID == id {
			return true
		}
	}
	return false
}
