package main

import (
	"context"
	"time"

	"github.com/campuslink/notification-server/channel"
	"github.com/campuslink/notification-server/config"
	"github.com/campuslink/notification-server/controllers"
	"github.com/campuslink/notification-server/dispatch"
	"github.com/campuslink/notification-server/models"
	"github.com/campuslink/notification-server/providers/mailer"
	"github.com/campuslink/notification-server/repos"
	"github.com/campuslink/notification-server/server"
	"github.com/campuslink/notification-server/utils"
	"github.com/gofiber/fiber/v2"
	mail "github.com/xhit/go-simple-mail/v2"
	"go.uber.org/fx"
)

func main() {

	opts := []fx.Option{}
	opts = append(opts, provideOptions()...)
	opts = append(opts, fx.Invoke(run))

	app := fx.New(opts...)

	app.Run()
}

func provideOptions() []fx.Option {
	return []fx.Option{
		fx.Invoke(utils.ConfigureLogger),
		fx.Provide(config.Parse),
		fx.Invoke(func(config *config.Config) {
			utils.InitSharedConstants(*config.JwtParsedPublicKey)
		}),
		fx.Provide(config.ProvidePostgres),
		fx.Provide(config.ProvideRedis),
		fx.Provide(config.ProvideSmtp),
		fx.Provide(server.CreateServer),
		fx.Provide(utils.GetDefaultRouter),
		fx.Invoke(models.InitModelRegistrations),
		fx.Provide(repos.NewNotificationRepo),
		fx.Provide(repos.NewUserRepo),
		fx.Provide(channel.NewBroadcaster),
		fx.Provide(provideMailer),
		fx.Provide(provideDispatcher),
		fx.Invoke(registerMailer),
		fx.Invoke(controllers.RegisterNotificationController),
	}
}

func provideMailer(config *config.Config, client *mail.SMTPClient) *mailer.Mailer {
	return mailer.New(client, config.EmailConfig.From, config.EmailConfig.QueueSize)
}

func provideDispatcher(config *config.Config, notifications *repos.NotificationRepo, users *repos.UserRepo, broadcaster *channel.Broadcaster, mail *mailer.Mailer) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(
		notifications,
		dispatch.NewResolver(users),
		broadcaster,
		mail,
		users,
		time.Second*time.Duration(config.DispatchConfig.WriteTimeoutSec),
	)
}

func registerMailer(lc fx.Lifecycle, m *mailer.Mailer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			m.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			m.Stop()
			return nil
		},
	})
}

func run(app *fiber.App, config *config.Config, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			errChan := make(chan error)

			go func() {
				errChan <- app.Listen(config.Port)
			}()

			select {
			case err := <-errChan:
				return err
			case <-time.After(100 * time.Millisecond):
				return nil
			}
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}
