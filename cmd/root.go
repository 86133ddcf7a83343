// Package cmd wires the whole process together: relational store,
// Valkey-backed ephemeral stores, domain services, the NLU ensemble,
// Ingress/Router/Egress, and the Scheduler worker. Grounded on the
// bot's own cmd/root.go package-level-var + cobra + viper +
// godotenv init() pattern, generalized from a WhatsApp-REST-server
// command set to this assistant's serve/migrate subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/config"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/database"
	"github.com/MichaelMishaev/assitentWAbot-sub006/egress"
	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/ephemeral"
	vk "github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
	"github.com/MichaelMishaev/assitentWAbot-sub006/ingress"
	"github.com/MichaelMishaev/assitentWAbot-sub006/nlu"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/MichaelMishaev/assitentWAbot-sub006/router"
	"github.com/MichaelMishaev/assitentWAbot-sub006/scheduler"
	"github.com/MichaelMishaev/assitentWAbot-sub006/services"
	"github.com/MichaelMishaev/assitentWAbot-sub006/state"
	"gorm.io/gorm"
)

var settings *config.Settings

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "levwa",
	Short: "Hebrew WhatsApp conversational assistant",
	Long:  "levwa routes inbound WhatsApp messages through an NLU-driven conversation pipeline and schedules reminder/summary deliveries.",
}

func init() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("[STARTUP] no .env file found, relying on process environment")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	settings = config.LoadFromEnv()

	if settings.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	rootCmd.PersistentFlags().StringVar(&settings.Database.DSN, "db-dsn", settings.Database.DSN, "relational store DSN")
	rootCmd.PersistentFlags().StringVar(&settings.Valkey.Address, "valkey-address", settings.Valkey.Address, "Valkey address")
	rootCmd.PersistentFlags().BoolVar(&settings.Debug, "debug", settings.Debug, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles every wired collaborator, built once by buildApp and
// shared by the serve command's ingress handler and background
// scheduler goroutines.
type app struct {
	db       *gorm.DB
	vkClient *vk.Client
	router   *router.Router
	ingress  *ingress.Adapter
	egress   *egress.Adapter
	worker   *scheduler.Worker
	daily    *scheduler.DailyScheduler
	jobQueue *scheduler.JobQueue
}

type logTransport struct{}

// SendMessage is the out-of-scope WhatsApp wire client this repository
// never implements (spec.md §1/§6); it logs instead of dialing a real
// transport so the pipeline is runnable and observable standalone.
// A production deployment supplies a real egress.Transport here.
func (logTransport) SendMessage(ctx context.Context, recipient, text string) (string, error) {
	logrus.WithFields(logrus.Fields{"to": recipient, "text": text}).Info("[TRANSPORT] outbound message")
	return fmt.Sprintf("local-%d", time.Now().UnixNano()), nil
}

func (logTransport) React(ctx context.Context, recipient, messageID, emoji string) error {
	logrus.WithFields(logrus.Fields{"to": recipient, "message_id": messageID, "emoji": emoji}).Info("[TRANSPORT] outbound reaction")
	return nil
}

type operatorAlerter struct {
	egress *egress.Adapter
	phone  string
}

func (o *operatorAlerter) AlertOperator(ctx context.Context, text string) error {
	if o.phone == "" {
		logrus.Warn("[NLU] operator phone not configured, skipping cost alert")
		return nil
	}
	_, err := o.egress.SendText(ctx, o.phone, text)
	return err
}

func buildApp(ctx context.Context) (*app, error) {
	gormDB, err := database.Open(&settings.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	vkClient, err := vk.NewClient(vk.Config{
		Address:        settings.Valkey.Address,
		Password:       settings.Valkey.Password,
		DB:             settings.Valkey.DB,
		KeyPrefix:       settings.Valkey.KeyPrefix,
		ConnectTimeout: vk.DefaultConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect valkey: %w", err)
	}

	clk := clock.Real{}

	users := repository.NewUserRepository(gormDB)
	contacts := repository.NewContactRepository(gormDB)
	events := repository.NewEventRepository(gormDB)
	reminders := repository.NewReminderRepository(gormDB)
	tasks := repository.NewTaskRepository(gormDB)
	costLogs := repository.NewCostLogRepository(gormDB)
	nlpComparisons := repository.NewNLPComparisonRepository(gormDB)

	sessionStore := ephemeral.NewSessionStore(vkClient)
	authStore := ephemeral.NewAuthStateStore(vkClient)
	dedupStore := ephemeral.NewDedupStore(vkClient)
	bugReportStore := ephemeral.NewBugReportStore(vkClient)
	rateLimiter := ephemeral.NewRateLimiter(vkClient, 20)
	quoteIndex := ephemeral.NewQuoteIndexStore(vkClient)

	transport := logTransport{}
	egressAdapter := egress.NewAdapter(transport, 20)

	alerter := &operatorAlerter{egress: egressAdapter, phone: settings.Operator.Phone}
	costAccountant := nlu.NewCostAccountant(costLogs, alerter, clk)
	shadowLogger := nlu.NewShadowLogger(nlpComparisons)

	var providers []nlu.Provider
	if settings.NLU.OpenAIAPIKey != "" {
		providers = append(providers, nlu.NewOpenAIProvider(settings.NLU.OpenAIAPIKey, settings.NLU.OpenAIModel))
	}
	if settings.NLU.GeminiAPIKey != "" {
		providers = append(providers, nlu.NewGeminiProvider(settings.NLU.GeminiAPIKey, settings.NLU.GeminiModel))
	}
	if settings.NLU.CompatAPIKey != "" {
		providers = append(providers, nlu.NewCompatProvider(settings.NLU.CompatAPIKey, settings.NLU.CompatBaseURL, settings.NLU.CompatModel))
	}
	ensemble := nlu.NewEnsemble(providers, settings.NLU.EnsembleDeadline, costAccountant, shadowLogger)

	jobQueue := scheduler.NewJobQueue(vkClient)

	contactService := services.NewContactService(contacts)
	eventService := services.NewEventService(events, contactService, clk, 60)
	reminderService := services.NewReminderService(reminders, clk, jobQueue)
	taskService := services.NewTaskService(tasks)
	authService := services.NewAuthService(users, authStore, settings.Auth, clk)

	stateManager := state.NewManager(sessionStore, clk)

	deps := router.Deps{
		Clock:              clk,
		Dedup:              dedupStore,
		BugReports:         bugReportStore,
		RateLimiter:        rateLimiter,
		States:             stateManager,
		Auth:               authService,
		Users:              users,
		Events:             eventService,
		Reminders:          reminderService,
		Tasks:              taskService,
		Contacts:           contactService,
		NLU:                ensemble,
		Egress:             egressAdapter,
		QuotedEvents:       quoteIndex,
		RateLimitPerMinute: 20,
	}
	r := router.New(deps)
	ingressAdapter := ingress.NewAdapter(r.Handle)

	worker := scheduler.NewWorker(jobQueue, reminders, users, reminderService, egressAdapter, clk, settings.Scheduler)
	daily := scheduler.NewDailyScheduler(vkClient, users, eventService, reminderService, taskService, egressAdapter, clk, settings.Scheduler)

	return &app{
		db:       gormDB,
		vkClient: vkClient,
		router:   r,
		ingress:  ingressAdapter,
		egress:   egressAdapter,
		worker:   worker,
		daily:    daily,
		jobQueue: jobQueue,
	}, nil
}

// waitForShutdown blocks until SIGINT/SIGTERM, then returns so the
// caller can release resources.
func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logrus.Info("[APP] termination signal received, shutting down")
}
