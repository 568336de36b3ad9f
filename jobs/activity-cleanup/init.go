package main

import (
	"log/slog"
	"os"

	"github.com/cohort-framework/cohort-backend/pkg/db"
	"github.com/cohort-framework/cohort-backend/pkg/utils"
	"gopkg.in/yaml.v2"

	studyDB "github.com/cohort-framework/cohort-backend/pkg/db/study"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_STUDY_DB_USERNAME = "STUDY_DB_USERNAME"
	ENV_STUDY_DB_PASSWORD = "STUDY_DB_PASSWORD"
)

const DEFAULT_RETENTION_DAYS = 90

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		StudyDB db.DBConfigYaml `json:"study_db" yaml:"study_db"`
	} `json:"db_configs" yaml:"db_configs"`

	InstanceIDs []string `json:"instance_ids" yaml:"instance_ids"`

	CleanUpConfig struct {
		// How long hidden and expired activities are kept before removal.
		RetentionDays int `json:"retention_days" yaml:"retention_days"`
	} `json:"clean_up_config" yaml:"clean_up_config"`
}

var conf config

var (
	studyDBService *studyDB.StudyDBService
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(conf.Logging)

	// Override secrets from environment variables
	secretsOverride()

	if conf.CleanUpConfig.RetentionDays <= 0 {
		conf.CleanUpConfig.RetentionDays = DEFAULT_RETENTION_DAYS
	}

	// init db
	initDBs()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_STUDY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.StudyDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_STUDY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.StudyDB.Password = dbPassword
	}
}

func initDBs() {
	var err error
	studyDBService, err = studyDB.NewStudyDBService(db.DBConfigFromYamlObj(conf.DBConfigs.StudyDB, conf.InstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Study DB", slog.String("error", err.Error()))
		panic(err)
	}
}
