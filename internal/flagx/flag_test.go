package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	mainFlags := []string{"-d", "-b", "-a", "-i", "-n", "-l"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "config flag dropped from main set",
			args:    []string{"-c", "winotp.json", "-d", "/var/lib/winotp"},
			allowed: mainFlags,
			want:    []string{"-d", "/var/lib/winotp"},
		},
		{
			name:    "main flags dropped from config set",
			args:    []string{"-b", "sqlite", "-config=/etc/winotp.json", "-l", "debug"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=/etc/winotp.json"},
		},
		{
			name:    "equals form keeps value with dashes",
			args:    []string{"-n=time.google.com,-bogus"},
			allowed: mainFlags,
			want:    []string{"-n=time.google.com,-bogus"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-a"},
			allowed: mainFlags,
			want:    []string{"-a"},
		},
		{
			name:    "next flag is not a value",
			args:    []string{"-d", "-b", "file"},
			allowed: mainFlags,
			want:    []string{"-d", "-b", "file"},
		},
		{
			name:    "positional arguments ignored",
			args:    []string{"list", "-i", "600", "extra"},
			allowed: mainFlags,
			want:    []string{"-i", "600"},
		},
		{
			name:    "repeated flag kept in order",
			args:    []string{"-l", "info", "-l", "debug"},
			allowed: mainFlags,
			want:    []string{"-l", "info", "-l", "debug"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-d", "x"},
			allowed: nil,
			want:    []string{},
		},
		{
			name:    "empty args",
			args:    nil,
			allowed: mainFlags,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{"short", []string{"-c", "/etc/winotp.json"}, "", "/etc/winotp.json"},
		{"long with equals", []string{"-config=/etc/winotp.json"}, "", "/etc/winotp.json"},
		{"last wins", []string{"-c", "/a.json", "-config", "/b.json"}, "", "/b.json"},
		{"other flags only", []string{"-d", "data", "-l", "debug"}, "", ""},
		{"environment fallback", nil, " /env.json ", "/env.json"},
		{"flag beats environment", []string{"-c", "/flag.json"}, "/env.json", "/flag.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigEnvVar, tt.env)
			os.Args = append([]string{"winotp"}, tt.args...)
			assert.Equal(t, tt.want, JsonConfigFlags())
		})
	}
}
