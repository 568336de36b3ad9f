package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/cohort-framework/cohort-backend/pkg/apihelpers"
	"github.com/cohort-framework/cohort-backend/pkg/db"
	"github.com/cohort-framework/cohort-backend/pkg/utils"

	"log/slog"

	studyDB "github.com/cohort-framework/cohort-backend/pkg/db/study"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_STUDY_DB_USERNAME = "STUDY_DB_USERNAME"
	ENV_STUDY_DB_PASSWORD = "STUDY_DB_PASSWORD"

	ENV_PARTICIPANT_USER_JWT_SIGN_KEY = "PARTICIPANT_USER_JWT_SIGN_KEY"
)

type ParticipantApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`

		RateLimit struct {
			RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
			Burst             int     `json:"burst" yaml:"burst"`
		} `json:"rate_limit" yaml:"rate_limit"`
	} `json:"gin_config" yaml:"gin_config"`

	ParticipantUserJWTSignKey string `json:"participant_user_jwt_sign_key" yaml:"participant_user_jwt_sign_key"`

	AllowedInstanceIDs []string `json:"allowed_instance_ids" yaml:"allowed_instance_ids"`

	// DB configs
	DBConfigs struct {
		StudyDB db.DBConfigYaml `json:"study_db" yaml:"study_db"`
	} `json:"db_configs" yaml:"db_configs"`

	// Study module config
	StudyConfigs struct {
		DefaultLookaheadDays int `json:"default_lookahead_days" yaml:"default_lookahead_days"`
		MaxLookaheadDays     int `json:"max_lookahead_days" yaml:"max_lookahead_days"`
	} `json:"study_configs" yaml:"study_configs"`
}

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

	// Init DBs
	initDBs()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	applyStudyConfigDefaults()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_STUDY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.StudyDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_STUDY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.StudyDB.Password = dbPassword
	}

	if participantUserJwtSignKey := os.Getenv(ENV_PARTICIPANT_USER_JWT_SIGN_KEY); participantUserJwtSignKey != "" {
		conf.ParticipantUserJWTSignKey = participantUserJwtSignKey
	}
}

func applyStudyConfigDefaults() {
	if conf.StudyConfigs.DefaultLookaheadDays < 1 {
		conf.StudyConfigs.DefaultLookaheadDays = 4
	}
	if conf.GinConfig.RateLimit.RequestsPerSecond <= 0 {
		conf.GinConfig.RateLimit.RequestsPerSecond = 5
	}
	if conf.GinConfig.RateLimit.Burst < 1 {
		conf.GinConfig.RateLimit.Burst = 10
	}
}

func initDBs() {
	var err error
	studyDBService, err = studyDB.NewStudyDBService(db.DBConfigFromYamlObj(conf.DBConfigs.StudyDB, conf.AllowedInstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Study DB", slog.String("error", err.Error()))
		return
	}
}
