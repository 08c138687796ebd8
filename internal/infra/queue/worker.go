package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// WelcomeMailer envia o email de boas-vindas (implementado por mail.EmailSender).
type WelcomeMailer interface {
	SendWelcome(to, name, program, trackerLink string) error
}

// Consumer é o pedaço do *amqp.Channel usado pelo worker.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

const (
	ProgramMembership = "Membership"

	defaultChallengeWeeks = 6
)

// ChallengeProgram nomeia o desafio pela duração configurada.
func ChallengeProgram(weeks int) string {
	if weeks <= 0 {
		weeks = defaultChallengeWeeks
	}
	return fmt.Sprintf("%d-Week Challenge", weeks)
}

// Worker consome os eventos de lead e dá boas-vindas a novos membros e
// challengers.
type Worker struct {
	Channel        Consumer
	Mailer         WelcomeMailer
	ChallengeWeeks int
}

func NewWorker(ch Consumer, mailer WelcomeMailer, challengeWeeks int) *Worker {
	return &Worker{Channel: ch, Mailer: mailer, ChallengeWeeks: challengeWeeks}
}

// Start consome até o contexto ser cancelado ou o canal fechar.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	log.Printf(" [*] Worker rodando e aguardando na fila '%s'", queueName)
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 [WORKER] encerrando")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("canal do RabbitMQ fechado")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var event entity.LeadEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Printf("❌ [WORKER] JSON inválido: %s", err)
		// mensagem malformada vai para a DLQ
		d.Nack(false, false)
		return
	}

	if err := w.processEvent(ctx, event); err != nil {
		log.Printf("❌ [WORKER] Erro ao processar evento %s: %s", event.ID, err)
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}

func (w *Worker) processEvent(_ context.Context, event entity.LeadEvent) error {
	name := strings.TrimSpace(event.FirstName + " " + event.LastName)

	var program, link string
	switch {
	case event.Status.IsChallengeSignUp():
		program, link = ChallengeProgram(w.ChallengeWeeks), event.ChallengerFile
	case event.Status.IsMemberSignUp():
		program = ProgramMembership
	default:
		return nil
	}

	if event.Email == "" {
		log.Printf("⚠️ [WORKER] %s sem email, boas-vindas não enviadas", name)
		return nil
	}
	log.Printf("⚙️ [WORKER] Boas-vindas (%s) para %s", program, name)
	return w.Mailer.SendWelcome(event.Email, event.FirstName, program, link)
}
