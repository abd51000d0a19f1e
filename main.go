package main

import (
	"io"
	"log"
	"net/http"

	"warden/account"
	"warden/bizerror"
	"warden/credential"
	"warden/domain"
	"warden/infra/tracing"
	"warden/notify"
	"warden/persistence"
	"warden/session"
	"warden/sessions"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

func main() {
	log.Println("service start")

	closer, err := bootstrapTracing()
	if err != nil {
		log.Printf("tracing disabled %v\n", err)
	} else {
		defer closer.Close()
	}

	tokenConfig, err := session.ParseTokenConfigFromEnv()
	if err != nil {
		log.Fatalf("parse token config failed %v\n", err)
	}

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database conneciton failed %v\n", err)
	}
	defer ds.Stop()

	// database migration (race condition)
	err = ds.GormDB().AutoMigrate(
		&account.User{}, &credential.PasswordHistory{},
		&domain.PermissionGroup{}, &domain.Permission{}, &domain.RolePermission{},
		&domain.Role{}, &domain.RoleGroup{}, &domain.RoleGroupMap{}, &domain.UserRole{},
		&sessions.LoggedInUser{},
	).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	if err := account.BootstrapSuperuser(ds); err != nil {
		log.Fatalf("superuser bootstrap failed %v\n", err)
	}

	publisher := notify.NewPublisherFromEnv()

	sessionManager := sessions.NewSessionManager(ds, tokenConfig, publisher)
	userManager := account.NewUserManager(ds, publisher)
	passwordManager := account.NewPasswordManager(ds, tokenConfig, publisher)
	groupManager := domain.NewGroupManager(ds)
	permissionManager := domain.NewPermissionManager(ds)
	roleManager := domain.NewRoleManager(ds)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@daily", func() { account.SweepExpiredUsers(ds) }); err != nil {
		log.Fatalf("failed to schedule expiry sweep %v\n", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "warden")
	})

	authFilter := sessions.BearerAuthFilter(ds, tokenConfig)

	sessions.RegisterSessionsHandler(engine, sessionManager)
	sessions.RegisterSessionHandler(engine, sessionManager, authFilter)
	account.RegisterPasswordRecoveriesHandler(engine, passwordManager)
	account.RegisterPasswordsHandler(engine, passwordManager, authFilter)
	account.RegisterUsersHandler(engine, userManager, authFilter)
	domain.RegisterPermissionGroupsHandler(engine, groupManager, authFilter)
	domain.RegisterPermissionsHandler(engine, permissionManager, authFilter)
	domain.RegisterRolePermissionsHandler(engine, permissionManager, authFilter)
	domain.RegisterRolesHandler(engine, roleManager, authFilter)
	domain.RegisterRoleGroupsHandler(engine, roleManager, authFilter)

	err = engine.Run(":80")
	if err != nil {
		panic(err)
	}
}

func bootstrapTracing() (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "warden"
	}
	closer, err := cfg.InitGlobalTracer(cfg.ServiceName)
	if err != nil {
		return nil, err
	}
	return closer, nil
}
