package service

import (
	"context"
	"encoding/json"
	"time"

	"policy-qa-be/internal/dto"
	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/model"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService persists a search log row for every completed
// pipeline run, off the request path.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.AnswerCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "unparseable completion message", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite redelivery
		msg.Ack()
		return
	}

	correlationId, err := uuid.Parse(payload.CorrelationId)
	if err != nil {
		cs.logger.Error("ConsumerService", "invalid correlation id on completion message", map[string]interface{}{"correlation_id": payload.CorrelationId})
		msg.Ack()
		return
	}

	searchType := model.SearchTypeHybrid
	if payload.Failed {
		searchType = model.SearchTypeFailed
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	log := &entity.SearchLog{
		Id:            uuid.New(),
		Query:         payload.Query,
		SearchType:    searchType,
		ResultCount:   payload.ResultCount,
		TopScore:      payload.TopScore,
		DurationMs:    payload.DurationMs,
		CorrelationId: correlationId,
		CreatedAt:     time.Now(),
	}

	if err := uow.SearchLogRepository().Create(ctx, log); err != nil {
		cs.logger.Error("ConsumerService", "failed to persist search log", map[string]interface{}{
			"correlation_id": payload.CorrelationId,
			"error":          err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info("ConsumerService", "search log persisted", map[string]interface{}{
		"correlation_id": payload.CorrelationId,
		"result_count":   payload.ResultCount,
	})
	msg.Ack()
}
