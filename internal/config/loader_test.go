package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a TOML file that sets a subset of fields", t, func() {
		path := writeConfigFile(t, `
mode = "settle"
log_level = "debug"

[provider]
api_key = "file-key"

[database]
host = "db.internal"
password = "hunter2"

[jobs]
sync_interval = "30s"
settle_interval = "2m"
`)

		Convey("Load merges the file on top of the defaults", func() {
			cfg, err := Load(path)
			So(err, ShouldBeNil)

			So(cfg.Mode, ShouldEqual, "settle")
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.Provider.APIKey, ShouldEqual, "file-key")
			So(cfg.Database.Host, ShouldEqual, "db.internal")
			So(cfg.Jobs.SyncInterval.Duration, ShouldEqual, 30*time.Second)
			So(cfg.Jobs.SettleInterval.Duration, ShouldEqual, 2*time.Minute)

			// Untouched fields keep their defaults.
			So(cfg.Database.Port, ShouldEqual, 5432)
			So(cfg.Provider.BaseURL, ShouldEqual, "https://v3.football.api-sports.io")
			So(cfg.Jobs.InvocationTimeout.Duration, ShouldEqual, 2*time.Minute)
		})

		Convey("Environment variables override the file", func() {
			t.Setenv("BANGER_PROVIDER_API_KEY", "env-key")
			t.Setenv("BANGER_JOBS_SYNC_INTERVAL", "45s")
			t.Setenv("BANGER_DATABASE_RUN_MIGRATIONS", "false")
			t.Setenv("BANGER_NOTIFY_EVENTS", "settlement.error, settlement.awarded")

			cfg, err := Load(path)
			So(err, ShouldBeNil)
			So(cfg.Provider.APIKey, ShouldEqual, "env-key")
			So(cfg.Jobs.SyncInterval.Duration, ShouldEqual, 45*time.Second)
			So(cfg.Database.RunMigrations, ShouldBeFalse)
			So(cfg.Notify.Events, ShouldResemble, []string{"settlement.error", "settlement.awarded"})
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		So(err, ShouldNotBeNil)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.Provider.APIKey = "key"
		return cfg
	}

	Convey("Given a complete configuration", t, func() {
		cfg := valid()
		So(cfg.Validate(), ShouldBeNil)
	})

	Convey("Given invalid values, every problem is reported at once", t, func() {
		cfg := valid()
		cfg.Mode = "sideways"
		cfg.Provider.APIKey = ""
		cfg.Jobs.SyncInterval.Duration = 0

		err := cfg.Validate()
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "unknown mode")
		So(err.Error(), ShouldContainSubstring, "provider: api_key")
		So(err.Error(), ShouldContainSubstring, "jobs: sync_interval")
	})

	Convey("Given archiving enabled without a bucket", t, func() {
		cfg := valid()
		cfg.Jobs.ArchiveEnabled = true
		cfg.S3.Bucket = ""

		err := cfg.Validate()
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "s3: bucket")
	})

	Convey("Given an empty redis addr, redis knobs are not checked", t, func() {
		cfg := valid()
		cfg.Redis.Addr = ""
		cfg.Redis.PoolSize = 0
		So(cfg.Validate(), ShouldBeNil)
	})
}

func TestRedactedConfig(t *testing.T) {
	Convey("Given a configuration carrying secrets", t, func() {
		cfg := Defaults()
		cfg.Provider.APIKey = "api-secret"
		cfg.Database.Password = "db-secret"
		cfg.Redis.Password = "redis-secret"
		cfg.S3.SecretKey = "s3-secret"
		cfg.Notify.TelegramToken = "bot-token"

		out := RedactedConfig(&cfg)

		Convey("Secrets are masked in the copy", func() {
			So(out.Provider.APIKey, ShouldEqual, "***")
			So(out.Database.Password, ShouldEqual, "***")
			So(out.Redis.Password, ShouldEqual, "***")
			So(out.S3.SecretKey, ShouldEqual, "***")
			So(out.Notify.TelegramToken, ShouldEqual, "***")
		})

		Convey("Empty secrets stay empty", func() {
			So(out.S3.AccessKey, ShouldEqual, "")
		})

		Convey("The original is untouched", func() {
			So(cfg.Provider.APIKey, ShouldEqual, "api-secret")
		})
	})
}
