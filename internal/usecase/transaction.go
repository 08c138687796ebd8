package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Transaction é uma saga: passos executados em ordem e, se um falha, os
// anteriores são desfeitos em ordem inversa.
type Transaction struct {
	name  string
	steps []Step
}

type Step struct {
	Name string
	Do   func(context.Context) error
	Undo func(context.Context) error
}

func NewTransaction(name string) *Transaction {
	return &Transaction{name: name}
}

// AddStep registra um passo. undo pode ser nil quando não há o que desfazer.
func (t *Transaction) AddStep(name string, do, undo func(context.Context) error) {
	t.steps = append(t.steps, Step{Name: name, Do: do, Undo: undo})
}

// RollbackError indica que a compensação também falhou e o estado ficou
// inconsistente até a próxima execução.
type RollbackError struct {
	Step string
	Err  error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("compensação '%s' falhou: %v", e.Step, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

func (t *Transaction) Execute(ctx context.Context) error {
	for i, step := range t.steps {
		if err := step.Do(ctx); err != nil {
			stepErr := fmt.Errorf("%s: passo '%s' falhou: %w", t.name, step.Name, err)
			if rbErr := t.rollback(ctx, i); rbErr != nil {
				return errors.Join(stepErr, rbErr)
			}
			return fmt.Errorf("%w (desfeitos %d passos)", stepErr, i)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAt int) error {
	var errs []error
	for i := failedAt - 1; i >= 0; i-- {
		step := t.steps[i]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(ctx); err != nil {
			log.Printf("⚠️ [%s] compensação '%s' falhou: %v (risco de inconsistência!)", t.name, step.Name, err)
			errs = append(errs, &RollbackError{Step: step.Name, Err: err})
		}
	}
	return errors.Join(errs...)
}
