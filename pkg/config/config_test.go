package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadMissingFile(t *testing.T) {
	config, err := Read(filepath.Join(t.TempDir(), "dsc.yaml"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(config.Discourse) != 0 {
		t.Errorf("Read() = %v, want empty config", config)
	}
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsc.yaml")
	want := Config{
		Discourse: []Discourse{
			{
				Name:             "meta",
				BaseURL:          "https://meta.example.com",
				APIKey:           "secret",
				APIUsername:      "system",
				ChangelogTopicID: 42,
				SSHHost:          "meta-host",
				Tags:             []string{"prod"},
			},
		},
	}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read() = %+v, want %+v", got, want)
	}
}

func TestSSHTarget(t *testing.T) {
	tests := []struct {
		name string
		d    Discourse
		want string
	}{
		{
			name: "defaults to name",
			d:    Discourse{Name: "forum"},
			want: "forum",
		},
		{
			name: "uses ssh host",
			d:    Discourse{Name: "forum", SSHHost: "forum.example.com"},
			want: "forum.example.com",
		},
		{
			name: "blank ssh host",
			d:    Discourse{Name: "forum", SSHHost: "  "},
			want: "forum",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.SSHTarget(); got != tt.want {
				t.Errorf("SSHTarget() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandsFrom(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Commands
	}{
		{
			name: "defaults",
			env:  nil,
			want: DefaultCommands(),
		},
		{
			name: "overrides",
			env: map[string]string{
				EnvOSUpdateCmd:         "echo os",
				EnvOSUpdateRollbackCmd: " echo rollback ",
				EnvUpdateCmd:           "echo update",
			},
			want: Commands{
				OSUpdate:          "echo os",
				OSUpdateRollback:  "echo rollback",
				Reboot:            DefaultRebootCmd,
				AppUpgrade:        "echo update",
				Cleanup:           DefaultCleanupCmd,
				OSVersion:         DefaultOSVersionCmd,
				OSVersionFallback: DefaultOSVersionFallback,
			},
		},
		{
			name: "blank reboot disables it, blank required keeps default",
			env: map[string]string{
				EnvRebootCmd:  "",
				EnvCleanupCmd: "   ",
			},
			want: Commands{
				OSUpdate:          DefaultOSUpdateCmd,
				AppUpgrade:        DefaultUpdateCmd,
				Cleanup:           DefaultCleanupCmd,
				OSVersion:         DefaultOSVersionCmd,
				OSVersionFallback: DefaultOSVersionFallback,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommandsFrom(MapLookup(tt.env)); got != tt.want {
				t.Errorf("CommandsFrom() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSSHOptionsFrom(t *testing.T) {
	options, err := SSHOptionsFrom(MapLookup(map[string]string{
		EnvSSHOptions: `-p 2222 -o "IdentityFile=/home/me/my key"`,
	}))
	if err != nil {
		t.Fatalf("SSHOptionsFrom() error = %v", err)
	}
	if options.StrictHostKeyChecking != DefaultStrictHostKey {
		t.Errorf("StrictHostKeyChecking = %q, want %q", options.StrictHostKeyChecking, DefaultStrictHostKey)
	}
	want := []string{"-p", "2222", "-o", "IdentityFile=/home/me/my key"}
	if !reflect.DeepEqual(options.Extra, want) {
		t.Errorf("Extra = %q, want %q", options.Extra, want)
	}

	if _, err := SSHOptionsFrom(MapLookup(map[string]string{EnvSSHOptions: `-o "unterminated`})); err == nil {
		t.Error("SSHOptionsFrom() expected error for unterminated quote")
	}
}

func TestLoadEnvPrefersProcessEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DSC_SSH_UPDATE_CMD=echo from-file\nDSC_SSH_CLEANUP_CMD=echo cleanup-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvUpdateCmd, "echo from-env")

	lookup, err := LoadEnv(path)
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	commands := CommandsFrom(lookup)
	if commands.AppUpgrade != "echo from-env" {
		t.Errorf("AppUpgrade = %q, want process env value", commands.AppUpgrade)
	}
	if commands.Cleanup != "echo cleanup-file" {
		t.Errorf("Cleanup = %q, want env file value", commands.Cleanup)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if _, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadEnv() error = %v, want nil for missing file", err)
	}
}

func TestAdd(t *testing.T) {
	var config Config
	if !config.Add(Discourse{Name: "meta"}) {
		t.Error("Add() = false for a new install")
	}
	if config.Add(Discourse{Name: "meta", BaseURL: "https://other.example.com"}) {
		t.Error("Add() = true for a duplicate name")
	}
	if len(config.Discourse) != 1 || config.Discourse[0].BaseURL != "" {
		t.Errorf("Add() changed existing entry: %+v", config.Discourse)
	}
}

func TestFilterByTags(t *testing.T) {
	config := Config{Discourse: []Discourse{
		{Name: "a", Tags: []string{"prod", "eu"}},
		{Name: "b", Tags: []string{"staging"}},
		{Name: "c"},
	}}
	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{name: "no filter", want: []string{"a", "b", "c"}},
		{name: "single tag", tags: []string{"staging"}, want: []string{"b"}},
		{name: "any tag", tags: []string{"EU", "staging"}, want: []string{"a", "b"}},
		{name: "no match", tags: []string{"us"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range config.FilterByTags(tt.tags) {
				got = append(got, d.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterByTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags(" prod, eu;; staging ,")
	want := []string{"prod", "eu", "staging"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTags() = %v, want %v", got, want)
	}
	if ParseTags("  ") != nil {
		t.Error("ParseTags() of blank input is not nil")
	}
}

func TestParseImport(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		csvFile bool
		want    []Discourse
	}{
		{
			name: "one url per line",
			raw:  "https://meta.example.com\n\n  https://try.example.com  \n",
			want: []Discourse{{BaseURL: "https://meta.example.com"}, {BaseURL: "https://try.example.com"}},
		},
		{
			name: "csv detected from header",
			raw:  "Name,URL,Tags\nmeta,https://meta.example.com,prod;eu\n,https://try.example.com\nempty,\n",
			want: []Discourse{
				{Name: "meta", BaseURL: "https://meta.example.com", Tags: []string{"prod", "eu"}},
				{BaseURL: "https://try.example.com"},
			},
		},
		{
			name:    "csv by extension",
			raw:     "forum,address\nmeta, https://meta.example.com\n",
			csvFile: true,
			want:    []Discourse{{Name: "meta", BaseURL: "https://meta.example.com"}},
		},
		{
			name: "empty",
			raw:  "\n\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseImport(tt.raw, tt.csvFile)
			if err != nil {
				t.Fatalf("ParseImport() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseImport() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseImportBadCSV(t *testing.T) {
	if _, err := ParseImport("name,url\n\"meta,https://meta.example.com\n", false); err == nil {
		t.Error("ParseImport() expected error for an unterminated quote")
	}
}

func TestLooksLikeCSV(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "\nname,baseurl\n", want: true},
		{raw: "https://meta.example.com\n", want: false},
		{raw: "name url\n", want: false},
		{raw: "", want: false},
	}
	for _, tt := range tests {
		if got := LooksLikeCSV(tt.raw); got != tt.want {
			t.Errorf("LooksLikeCSV(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Meta Discourse", want: "meta-discourse"},
		{input: "https://try.example.com/", want: "https-try-example-com"},
		{input: "  Café & Co.  ", want: "caf-co"},
		{input: "!!!", want: "untitled"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTidy(t *testing.T) {
	config := Config{Discourse: []Discourse{{Name: "try"}, {Name: "Meta"}, {Name: "alpha"}, {Name: "meta"}}}
	config.Tidy()

	var names []string
	for _, d := range config.Discourse {
		names = append(names, d.Name)
	}
	if want := []string{"alpha", "Meta", "meta", "try"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Tidy() order = %v, want %v", names, want)
	}
}
