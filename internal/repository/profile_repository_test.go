package repository

import (
	"testing"

	"github.com/nalgeon/be"

	"project_greeter/internal/entities"
)

func TestParseProfiles_HappyPath(t *testing.T) {
	data := []byte(`{"PROFILES": [
		{"NAME": "Anna", "PHONE_NUMBER": "+36 (30) 123-4567", "SESSION_NAME": "anna", "COLOR": "cyan"},
		{"NAME": "Bela", "PHONE_NUMBER": "36201112222", "SESSION_NAME": "bela.main", "COLOR": "magenta", "MAX_PER_MINUTE": 4}
	]}`)

	profiles, err := ParseProfiles(data)
	be.Err(t, err, nil)
	be.Equal(t, len(profiles), 2)
	be.Equal(t, profiles[0].Phone, "36301234567")
	be.Equal(t, profiles[0].Color, "cyan")
	be.Equal(t, profiles[1].SessionName, "bela.main")
	be.Equal(t, profiles[1].MaxPerMinute, 4)
}

func TestParseProfiles_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"PROFILES": [`,
		"too few":         `{"PROFILES": [{"NAME": "a", "PHONE_NUMBER": "1", "SESSION_NAME": "a"}]}`,
		"missing name":    `{"PROFILES": [{"PHONE_NUMBER": "1", "SESSION_NAME": "a"}, {"NAME": "b", "PHONE_NUMBER": "2", "SESSION_NAME": "b"}]}`,
		"bad phone":       `{"PROFILES": [{"NAME": "a", "PHONE_NUMBER": "12ab", "SESSION_NAME": "a"}, {"NAME": "b", "PHONE_NUMBER": "2", "SESSION_NAME": "b"}]}`,
		"bad session":     `{"PROFILES": [{"NAME": "a", "PHONE_NUMBER": "1", "SESSION_NAME": "../a"}, {"NAME": "b", "PHONE_NUMBER": "2", "SESSION_NAME": "b"}]}`,
		"dup session":     `{"PROFILES": [{"NAME": "a", "PHONE_NUMBER": "1", "SESSION_NAME": "s"}, {"NAME": "b", "PHONE_NUMBER": "2", "SESSION_NAME": "s"}]}`,
		"dup name":        `{"PROFILES": [{"NAME": "a", "PHONE_NUMBER": "1", "SESSION_NAME": "s"}, {"NAME": "a", "PHONE_NUMBER": "2", "SESSION_NAME": "t"}]}`,
		"negative limit":  `{"PROFILES": [{"NAME": "a", "PHONE_NUMBER": "1", "SESSION_NAME": "s", "MAX_PER_MINUTE": -1}, {"NAME": "b", "PHONE_NUMBER": "2", "SESSION_NAME": "t"}]}`,
		"missing section": `{}`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(data))
			be.Err(t, err, entities.ErrInvalidProfiles)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	be.Equal(t, NormalizePhone("+1 (555) 010-9999"), "15550109999")
	be.Equal(t, NormalizePhone(" 3620 "), "3620")
	be.Equal(t, NormalizePhone("12x4"), "")
	be.Equal(t, NormalizePhone(""), "")
}
