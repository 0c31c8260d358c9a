package config

const (
	DefaultDistrict    = "2023isr"
	DefaultSendDelayMs = 1500
)

// Teams outside the district that are still announced.
func DefaultAllowList() []int {
	return []int{1, 33, 67, 111, 118, 125, 148, 254, 302, 359, 624, 1114, 1619, 2056}
}

func DefaultOverrides() map[string]string {
	return map[string]string{
		"0411": "3388",
		"2117": "7112",
		"0752": "9303",
		"0014": "5990",
	}
}

func DefaultRules() []RuleSpec {
	return []RuleSpec{
		{
			Name:     "dramatic",
			Contains: []string{"רובוט"},
			Unless:   []string{"מי", "who"},
			Replies: []string{
				"רובוט?!",
				"מישהו אמר רובוט?",
				"...",
				"הרובוטים כבר כאן.",
				"אין לאן לברוח.",
			},
		},
		{
			// Fires on "robot" or on any body without the Hebrew trigger.
			Name:     "english",
			Contains: []string{"robot"},
			OrLacks:  []string{"רובוט"},
			Replies: []string{
				"Robot?",
				"Did someone say robot?",
				"Beep.",
				"Boop.",
				"The robots are already here.",
				"There is nowhere to run.",
			},
		},
		{Name: "2212", Contains: []string{"2212"}, Replies: []string{"2212!"}},
		{Name: "1212", Contains: []string{"1212"}, Replies: []string{"1212!"}},
		{Name: "12", Contains: []string{"12"}, Unless: []string{"2212", "1212"}, Replies: []string{"12!"}},
		{Name: "3388", Contains: []string{"3388"}, Replies: []string{"Flash!"}},
		{Name: "1690", Contains: []string{"1690"}, Replies: []string{"Orbit!"}},
	}
}
