package services

import (
	"github.com/orderstack/orderstack/config"
	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/internal/repository"
	"github.com/orderstack/orderstack/interfaces"
	"github.com/orderstack/orderstack/services/events"
	"github.com/orderstack/orderstack/services/imap"
	"github.com/orderstack/orderstack/services/orders"
	"github.com/orderstack/orderstack/services/progress"
	"github.com/orderstack/orderstack/services/storage"
)

type Services struct {
	ProgressRegistry  interfaces.ProgressRegistry
	OrderService      interfaces.OrderService
	JobEventPublisher interfaces.JobEventPublisher
	StorageService    interfaces.StorageService
	SessionFactory    interfaces.SessionFactory
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	registry := progress.NewRegistry(log)
	sessions := imap.NewSessionFactory(cfg.IMAPConfig, log)

	// both the event bus and object storage are optional
	var publisher interfaces.JobEventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		var err error
		publisher, err = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
	}

	var archiveStorage interfaces.StorageService
	if cfg.R2StorageConfig.AccountID != "" {
		archiveStorage = storage.NewR2ArchiveStorage(*cfg.R2StorageConfig)
	}

	orderService := orders.NewService(
		log,
		repos.SenderRepository,
		sessions,
		registry,
		publisher,
		archiveStorage,
		*cfg.StorageConfig,
		cfg.IMAPConfig.Mailbox,
	)

	services := Services{
		ProgressRegistry:  registry,
		OrderService:      orderService,
		JobEventPublisher: publisher,
		StorageService:    archiveStorage,
		SessionFactory:    sessions,
	}

	return &services, nil
}
