package engine

import (
	"context"
	"strings"

	"log/slog"

	"github.com/cisnemotors/leadbot/bot/store"
	"github.com/cisnemotors/leadbot/core/logger"
	"github.com/cisnemotors/leadbot/core/whatsapp"
)

func (e *Engine) handleStep(ctx context.Context, conv *store.Conversation, text string) error {
	switch conv.Step {
	case store.StepStart:
		return e.stepStart(ctx, conv)
	case store.StepWaitingName:
		return e.stepName(ctx, conv, text)
	case store.StepWaitingIDLocation:
		return e.stepIDLocation(ctx, conv, text)
	case store.StepWaitingCategory:
		return e.stepCategory(ctx, conv, text)
	case store.StepWaitingModel:
		return e.stepModel(ctx, conv, text)
	case store.StepWaitingColor:
		return e.stepColor(ctx, conv, text)
	case store.StepWaitingCallTime:
		return e.stepCallTime(ctx, conv, text)
	case store.StepFinished:
		return e.handleFinished(ctx, conv, text)
	default:
		logger.Error(ctx, "engine", "step.unknown",
			slog.String("status", "fail"),
			slog.String("step", string(conv.Step)),
		)
		return e.stepStart(ctx, conv)
	}
}

// stepStart greets and asks for the name. The triggering text is not
// consumed; whatever the user wrote first, the funnel starts the same way.
func (e *Engine) stepStart(ctx context.Context, conv *store.Conversation) error {
	if err := e.advance(ctx, conv, store.StepWaitingName, store.FieldUpdates{}); err != nil {
		return err
	}
	e.send(ctx, conv, whatsapp.NewText(conv.Phone, welcomeCopy))
	return nil
}

func (e *Engine) stepName(ctx context.Context, conv *store.Conversation, text string) error {
	name := ExtractName(text)
	if len(strings.Fields(name)) < 2 {
		return e.retry(ctx, conv, text)
	}

	if err := e.advance(ctx, conv, store.StepWaitingIDLocation, store.FieldUpdates{Name: store.String(name)}); err != nil {
		return err
	}
	hour := e.now().In(e.loc).Hour()
	e.send(ctx, conv, whatsapp.NewText(conv.Phone, idLocationGreeting(hour, name)))
	return nil
}

func (e *Engine) stepIDLocation(ctx context.Context, conv *store.Conversation, text string) error {
	id, location := ExtractIDLocation(text)
	if id == "" || location == "" {
		return e.retry(ctx, conv, text)
	}

	updates := store.FieldUpdates{DNIRuc: store.String(id), Location: store.String(location)}
	if err := e.advance(ctx, conv, store.StepWaitingCategory, updates); err != nil {
		return err
	}
	e.send(ctx, conv, e.categoryChooser(conv, ""))
	return nil
}

func (e *Engine) stepCategory(ctx context.Context, conv *store.Conversation, text string) error {
	category := ValidateCategory(text)
	if category == "" {
		count := e.recordRetry(ctx, conv, text)
		e.send(ctx, conv, e.categoryChooser(conv, retryCopy(conv.Step, count)))
		return nil
	}

	if err := e.advance(ctx, conv, store.StepWaitingModel, store.FieldUpdates{Category: store.String(category)}); err != nil {
		return err
	}
	e.send(ctx, conv, e.modelChooser(conv, category))
	return nil
}

// stepModel accepts any non-empty text verbatim: the list is a suggestion,
// not a constraint.
func (e *Engine) stepModel(ctx context.Context, conv *store.Conversation, text string) error {
	model := strings.TrimSpace(text)
	if model == "" {
		e.send(ctx, conv, e.modelChooser(conv, strVal(conv.Category)))
		return nil
	}

	if err := e.advance(ctx, conv, store.StepWaitingColor, store.FieldUpdates{Model: store.String(model)}); err != nil {
		return err
	}
	e.send(ctx, conv, e.colorChooser(conv))
	return nil
}

func (e *Engine) stepColor(ctx context.Context, conv *store.Conversation, text string) error {
	color := ValidateColor(text)
	if color == "" {
		color = strings.TrimSpace(text)
	}
	if color == "" {
		e.send(ctx, conv, e.colorChooser(conv))
		return nil
	}

	if err := e.advance(ctx, conv, store.StepWaitingCallTime, store.FieldUpdates{Color: store.String(color)}); err != nil {
		return err
	}
	e.send(ctx, conv, whatsapp.NewText(conv.Phone, callTimePromptCopy))
	return nil
}

func (e *Engine) stepCallTime(ctx context.Context, conv *store.Conversation, text string) error {
	callTime := strings.TrimSpace(text)
	if callTime == "" {
		e.send(ctx, conv, whatsapp.NewText(conv.Phone, callTimePromptCopy))
		return nil
	}

	updates := store.FieldUpdates{PreferredCallTime: store.String(callTime)}
	if err := e.advance(ctx, conv, store.StepFinished, updates); err != nil {
		return err
	}
	if err := e.store.MarkStatus(ctx, conv.ID, store.StatusCompleted); err != nil {
		logger.Error(ctx, "engine", "complete.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}

	name := strVal(conv.Name)
	model := strVal(conv.Model)
	color := strVal(conv.Color)
	e.send(ctx, conv, whatsapp.NewText(conv.Phone, confirmationCopy(name, model, color, callTime)))

	e.notifier.NotifyLeadComplete(ctx, Lead{
		Phone:             conv.Phone,
		Name:              name,
		DNIRuc:            strVal(conv.DNIRuc),
		Location:          strVal(conv.Location),
		Category:          strVal(conv.Category),
		Model:             model,
		Color:             color,
		PreferredCallTime: callTime,
		CreatedAt:         conv.CreatedAt,
		Status:            string(store.StatusCompleted),
	})

	logger.Info(ctx, "engine", "lead.completed",
		slog.String("status", "ok"),
		slog.String("phone", conv.Phone),
	)
	return nil
}

// handleFinished serves users who already went through the funnel: an
// affirmative reply resets the record in place and starts over, anything
// else gets the already-registered reminder.
func (e *Engine) handleFinished(ctx context.Context, conv *store.Conversation, text string) error {
	if !isAffirmative(text) {
		e.send(ctx, conv, whatsapp.NewText(conv.Phone, alreadyRegisteredCopy))
		return nil
	}

	if err := e.store.Restart(ctx, conv.ID); err != nil {
		logger.Error(ctx, "engine", "restart.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	conv.Step = store.StepStart
	conv.Status = store.StatusInProgress
	logger.Info(ctx, "engine", "conversation.restart",
		slog.String("status", "ok"),
		slog.String("phone", conv.Phone),
	)
	return e.stepStart(ctx, conv)
}

// advance commits a step transition before any send happens, so a delivery
// failure never loses captured fields.
func (e *Engine) advance(ctx context.Context, conv *store.Conversation, next store.Step, updates store.FieldUpdates) error {
	if err := e.store.Transition(ctx, conv.ID, next, updates); err != nil {
		logger.Error(ctx, "engine", "step.advance.fail",
			slog.String("status", "fail"),
			slog.String("step", string(conv.Step)),
			slog.String("next_step", string(next)),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Info(ctx, "engine", "step.advance",
		slog.String("status", "ok"),
		slog.String("step", string(conv.Step)),
		slog.String("next_step", string(next)),
	)

	// Passing a step resets its retry tier; stale failures must not carry
	// into a later run of the same step.
	if err := e.store.ClearFailedValidations(ctx, conv.ID, conv.Step); err != nil {
		logger.Warn(ctx, "engine", "retry.clear.fail",
			slog.String("status", "fail"),
			slog.String("step", string(conv.Step)),
			slog.String("err", err.Error()),
		)
	}

	applyUpdates(conv, updates)
	conv.Step = next
	return nil
}

// retry records the failed attempt and emits the tiered error copy without
// touching the step.
func (e *Engine) retry(ctx context.Context, conv *store.Conversation, input string) error {
	count := e.recordRetry(ctx, conv, input)
	e.send(ctx, conv, whatsapp.NewText(conv.Phone, retryCopy(conv.Step, count)))
	return nil
}

func (e *Engine) recordRetry(ctx context.Context, conv *store.Conversation, input string) int {
	count, err := e.store.RecordFailedValidation(ctx, conv.ID, conv.Step, input, e.retryWindow)
	if err != nil {
		logger.Warn(ctx, "engine", "retry.record.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		count = 1
	}
	logger.Info(ctx, "engine", "step.retry",
		slog.String("status", "retry"),
		slog.String("step", string(conv.Step)),
		slog.Int("retry_count", count),
	)
	return count
}

func (e *Engine) categoryChooser(conv *store.Conversation, errorPrefix string) whatsapp.Message {
	body := categoryPromptCopy
	if errorPrefix != "" {
		body = errorPrefix + "\n\n" + categoryPromptCopy
	}
	return whatsapp.NewButtons(conv.Phone, body, []string{CategoryTruck, CategoryPickup})
}

func (e *Engine) modelChooser(conv *store.Conversation, category string) whatsapp.Message {
	rows, ok := modelCatalog[category]
	if !ok {
		for _, r := range modelCatalog {
			rows = append(rows, r...)
		}
	}
	body := "Estos son nuestros modelos disponibles. Elige el que más te interese:"
	return whatsapp.NewList(conv.Phone, "Modelos", body, "Ver modelos",
		[]whatsapp.ListSection{{Title: "Catálogo", Rows: rows}})
}

func (e *Engine) colorChooser(conv *store.Conversation) whatsapp.Message {
	return whatsapp.NewList(conv.Phone, "Colores", "¿En qué color lo prefieres?", "Ver colores",
		[]whatsapp.ListSection{{Title: "Colores disponibles", Rows: colorRows}})
}

func applyUpdates(conv *store.Conversation, updates store.FieldUpdates) {
	if updates.Name != nil {
		conv.Name = updates.Name
	}
	if updates.DNIRuc != nil {
		conv.DNIRuc = updates.DNIRuc
	}
	if updates.Location != nil {
		conv.Location = updates.Location
	}
	if updates.Category != nil {
		conv.Category = updates.Category
	}
	if updates.Model != nil {
		conv.Model = updates.Model
	}
	if updates.Color != nil {
		conv.Color = updates.Color
	}
	if updates.PreferredCallTime != nil {
		conv.PreferredCallTime = updates.PreferredCallTime
	}
}
