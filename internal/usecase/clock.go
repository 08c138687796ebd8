package usecase

import (
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// Calendar centraliza "hoje" no fuso da academia. Now pode ser trocado nos
// testes.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Location: loc, Now: time.Now}
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.location())
	}
	return c.Now().In(c.location())
}

func (c Calendar) Today() time.Time {
	y, m, d := c.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.location())
}

// Datestamp é a data de hoje no formato das tabelas.
func (c Calendar) Datestamp() string {
	return entity.FormatDate(c.Today())
}

func (c Calendar) DatestampAfter(days int) string {
	return entity.FormatDate(c.Today().AddDate(0, 0, days))
}

// Format converte um instante qualquer para a data local das tabelas.
func (c Calendar) Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return entity.FormatDate(t.In(c.location()))
}

// Normalize reescreve uma data digitada à mão no formato padrão; valores que
// não são datas voltam como vieram.
func (c Calendar) Normalize(value string) string {
	t, ok := entity.ParseDate(value, c.location())
	if !ok {
		return value
	}
	return c.Format(t)
}
