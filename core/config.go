package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *viper.Viper

func init() {
	Conf = viper.New()

	// defaults
	Conf.SetTypeByDefaultValue(true)
	Conf.SetDefault("debug", false)
	Conf.SetDefault("appName", "Darasa")
	Conf.SetDefault("currentDate", "") // empty: today
	Conf.SetDefault("weekdayThreshold", 2)
	Conf.SetDefault("slipsPerWeek", 3)
	Conf.SetDefault("maxGeneratedAssignments", 100)
	Conf.SetDefault("maxErrorIDIterations", 100)
	Conf.SetDefault("latestTZOffset", 12*time.Hour)
	Conf.SetDefault("dataDir", "data")
	Conf.SetDefault("reviewFile", "reviews.csv")
	Conf.SetDefault("reportFile", "report.csv")
	Conf.SetDefault("introAssignment", "intro")
	Conf.SetDefault("weeklyAssignmentBase", "week")
	Conf.SetDefault("lastAssignment", "last")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case strings.ToUpper("TEST"):
		Conf.SetDefault("testMode", true)
	}
	Conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	Conf.AutomaticEnv()
}

// CurrentDate returns the audit reference date: the configured "currentDate"
// (YYYY-MM-DD) or today when unset.
func CurrentDate() time.Time {
	if raw := Conf.GetString("currentDate"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			return d.UTC()
		}
	}
	return time.Now().UTC()
}
