package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cisnemotors/leadbot/bot/store"
	"github.com/cisnemotors/leadbot/core/config"
	"github.com/cisnemotors/leadbot/core/whatsapp"
)

// memStore is an in-memory Store for engine tests. All methods are
// mutex-guarded so the concurrency test exercises real parallel access.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	convs    map[string]*store.Conversation
	failures map[string]int
	audit    int
}

func newMemStore() *memStore {
	return &memStore{convs: make(map[string]*store.Conversation), failures: make(map[string]int)}
}

func (m *memStore) GetOrCreate(_ context.Context, phone string) (*store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.convs[phone]; ok {
		copied := *conv
		return &copied, nil
	}
	m.nextID++
	conv := &store.Conversation{
		ID:        m.nextID,
		Phone:     phone,
		Step:      store.StepStart,
		Status:    store.StatusInProgress,
		CreatedAt: time.Now(),
	}
	m.convs[phone] = conv
	copied := *conv
	return &copied, nil
}

func (m *memStore) byID(id int64) *store.Conversation {
	for _, conv := range m.convs {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func (m *memStore) Transition(_ context.Context, id int64, next store.Step, updates store.FieldUpdates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := m.byID(id)
	applyUpdates(conv, updates)
	conv.Step = next
	return nil
}

func (m *memStore) MarkStatus(_ context.Context, id int64, status store.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID(id).Status = status
	return nil
}

func (m *memStore) Restart(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := m.byID(id)
	*conv = store.Conversation{ID: conv.ID, Phone: conv.Phone, Step: store.StepStart, Status: store.StatusInProgress, CreatedAt: conv.CreatedAt}
	prefix := string(rune(id)) + "|"
	for key := range m.failures {
		if strings.HasPrefix(key, prefix) {
			delete(m.failures, key)
		}
	}
	return nil
}

func (m *memStore) RecordFailedValidation(_ context.Context, id int64, step store.Step, _ string, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(rune(id)) + "|" + string(step)
	m.failures[key]++
	return m.failures[key], nil
}

func (m *memStore) ClearFailedValidations(_ context.Context, id int64, step store.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, string(rune(id))+"|"+string(step))
	return nil
}

func (m *memStore) LogMessage(_ context.Context, _ int64, _, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit++
	return nil
}

func (m *memStore) conversation(phone string) store.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.convs[phone]
}

func (m *memStore) failureCount(phone string, step store.Step) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := m.convs[phone]
	return m.failures[string(rune(conv.ID))+"|"+string(step)]
}

type memSender struct {
	mu   sync.Mutex
	sent []whatsapp.Message
}

func (s *memSender) Send(_ context.Context, msg whatsapp.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *memSender) last(t *testing.T) whatsapp.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

func (s *memSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type memNotifier struct {
	mu       sync.Mutex
	leads    []Lead
	handoffs []string
}

func (n *memNotifier) NotifyLeadComplete(_ context.Context, lead Lead) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, lead)
}

func (n *memNotifier) NotifyHandoff(_ context.Context, identity, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handoffs = append(n.handoffs, identity)
}

func newTestEngine() (*Engine, *memStore, *memSender, *memNotifier) {
	st := newMemStore()
	sender := &memSender{}
	notifier := &memNotifier{}
	eng := New(Options{
		Store:    st,
		Sender:   sender,
		Notifier: notifier,
		Dealer: config.DealerConfig{
			Name:      "Isuzu Cisne",
			Address:   "Av. Industrial 123, Lima",
			Latitude:  -11.991441,
			Longitude: -77.011681,
		},
	})
	return eng, st, sender, notifier
}

const phone = "51999888777"

func TestFullFunnel(t *testing.T) {
	eng, st, sender, notifier := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "hola", "text"))
	require.Equal(t, store.StepWaitingName, st.conversation(phone).Step)
	require.Contains(t, sender.last(t).Text.Body, "nombre completo")

	require.NoError(t, eng.Handle(ctx, phone, "Hola soy Juan Perez", "text"))
	conv := st.conversation(phone)
	require.Equal(t, store.StepWaitingIDLocation, conv.Step)
	require.Equal(t, "Juan Perez", *conv.Name)

	require.NoError(t, eng.Handle(ctx, phone, "10283749 Lima", "text"))
	conv = st.conversation(phone)
	require.Equal(t, store.StepWaitingCategory, conv.Step)
	require.Equal(t, "10283749", *conv.DNIRuc)
	require.Equal(t, "Lima", *conv.Location)
	chooser := sender.last(t)
	require.Equal(t, "button", chooser.Interactive.Type)
	require.LessOrEqual(t, len(chooser.Interactive.Action.Buttons), whatsapp.MaxButtons)

	require.NoError(t, eng.Handle(ctx, phone, "camioneta", "text"))
	conv = st.conversation(phone)
	require.Equal(t, store.StepWaitingModel, conv.Step)
	require.Equal(t, "Camionetas", *conv.Category)
	list := sender.last(t)
	require.Equal(t, "list", list.Interactive.Type)
	require.LessOrEqual(t, len(list.Interactive.Action.Sections[0].Rows), 2)

	require.NoError(t, eng.Handle(ctx, phone, "D-MAX 4x4", "interactive"))
	require.Equal(t, store.StepWaitingColor, st.conversation(phone).Step)

	require.NoError(t, eng.Handle(ctx, phone, "rojo", "interactive"))
	conv = st.conversation(phone)
	require.Equal(t, store.StepWaitingCallTime, conv.Step)
	require.Equal(t, "Rojo", *conv.Color)

	require.NoError(t, eng.Handle(ctx, phone, "mañana por la tarde", "text"))
	conv = st.conversation(phone)
	require.Equal(t, store.StepFinished, conv.Step)
	require.Equal(t, store.StatusCompleted, conv.Status)

	require.Len(t, notifier.leads, 1)
	lead := notifier.leads[0]
	require.Equal(t, "Juan Perez", lead.Name)
	require.Equal(t, "Camionetas", lead.Category)
	require.Equal(t, "D-MAX 4x4", lead.Model)
	require.Equal(t, "mañana por la tarde", lead.PreferredCallTime)
}

func TestNameValidationRetries(t *testing.T) {
	eng, st, sender, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "buenas", "text"))
	require.Equal(t, store.StepWaitingName, st.conversation(phone).Step)

	require.NoError(t, eng.Handle(ctx, phone, "Juan", "text"))
	require.Equal(t, store.StepWaitingName, st.conversation(phone).Step)
	require.Equal(t, 1, st.failureCount(phone, store.StepWaitingName))
	require.Contains(t, sender.last(t).Text.Body, "nombre completo")

	require.NoError(t, eng.Handle(ctx, phone, "pedro", "text"))
	require.Equal(t, 2, st.failureCount(phone, store.StepWaitingName))
	require.Contains(t, sender.last(t).Text.Body, "Por ejemplo")
}

func TestRetryTierResetsAfterPassingStep(t *testing.T) {
	eng, st, sender, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "hola", "text"))

	// Two failures escalate the tier, then a valid name passes the step.
	require.NoError(t, eng.Handle(ctx, phone, "Juan", "text"))
	require.NoError(t, eng.Handle(ctx, phone, "pedro", "text"))
	require.Equal(t, 2, st.failureCount(phone, store.StepWaitingName))
	require.NoError(t, eng.Handle(ctx, phone, "Juan Perez", "text"))
	require.Equal(t, 0, st.failureCount(phone, store.StepWaitingName))

	// Exit and restart in place, all within the retry window.
	require.NoError(t, eng.Handle(ctx, phone, "salir", "text"))
	require.NoError(t, eng.Handle(ctx, phone, "sí", "text"))
	require.Equal(t, store.StepWaitingName, st.conversation(phone).Step)

	// The first failure of the new run gets the first-tier copy again.
	require.NoError(t, eng.Handle(ctx, phone, "Juan", "text"))
	require.Equal(t, 1, st.failureCount(phone, store.StepWaitingName))
	body := sender.last(t).Text.Body
	require.Contains(t, body, "nombre completo")
	require.NotContains(t, body, "Por ejemplo")
}

func TestIDLocationRejectsMissingParts(t *testing.T) {
	eng, st, _, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "hola", "text"))
	require.NoError(t, eng.Handle(ctx, phone, "Juan Perez", "text"))

	require.NoError(t, eng.Handle(ctx, phone, "sin datos", "text"))
	require.Equal(t, store.StepWaitingIDLocation, st.conversation(phone).Step)

	// Identifier alone is not enough either.
	require.NoError(t, eng.Handle(ctx, phone, "45678912", "text"))
	require.Equal(t, store.StepWaitingIDLocation, st.conversation(phone).Step)
	require.Equal(t, 2, st.failureCount(phone, store.StepWaitingIDLocation))
}

func TestExitIntentCompletesFromAnySteps(t *testing.T) {
	steps := []store.Step{
		store.StepWaitingName,
		store.StepWaitingIDLocation,
		store.StepWaitingCategory,
		store.StepWaitingModel,
		store.StepWaitingColor,
		store.StepWaitingCallTime,
	}
	for _, step := range steps {
		eng, st, sender, _ := newTestEngine()
		ctx := context.Background()

		_, err := st.GetOrCreate(ctx, phone)
		require.NoError(t, err)
		require.NoError(t, st.Transition(ctx, 1, step, store.FieldUpdates{}))

		require.NoError(t, eng.Handle(ctx, phone, "ya no quiero, cancelar", "text"))
		conv := st.conversation(phone)
		require.Equal(t, store.StatusCompleted, conv.Status, "step %s", step)
		require.Equal(t, step, conv.Step, "step %s", step)
		require.Contains(t, sender.last(t).Text.Body, "Hasta pronto")
	}
}

func TestHandoffIntentSilencesConversation(t *testing.T) {
	eng, st, sender, notifier := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "hola", "text"))
	require.NoError(t, eng.Handle(ctx, phone, "quiero hablar con un asesor", "text"))

	conv := st.conversation(phone)
	require.Equal(t, store.StatusHandedOff, conv.Status)
	require.Equal(t, []string{phone}, notifier.handoffs)

	// Further messages are ignored while a human owns the conversation.
	before := sender.count()
	require.NoError(t, eng.Handle(ctx, phone, "hola?", "text"))
	require.Equal(t, before, sender.count())
}

func TestLocationIntentKeepsStep(t *testing.T) {
	eng, st, sender, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "hola", "text"))
	require.NoError(t, eng.Handle(ctx, phone, "donde queda la tienda", "text"))

	require.Equal(t, store.StepWaitingName, st.conversation(phone).Step)
	require.Contains(t, sender.last(t).Text.Body, "lunes a sábado")

	s := sender
	s.mu.Lock()
	pin := s.sent[len(s.sent)-2]
	s.mu.Unlock()
	require.Equal(t, "location", pin.Type)
	require.Equal(t, "Isuzu Cisne", pin.Location.Name)
}

func TestHelpIntentIsContextual(t *testing.T) {
	eng, st, sender, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Handle(ctx, phone, "hola", "text"))
	require.NoError(t, eng.Handle(ctx, phone, "ayuda", "text"))

	require.Equal(t, store.StepWaitingName, st.conversation(phone).Step)
	require.Contains(t, sender.last(t).Text.Body, "nombre y apellido")
}

func TestFinishedAffirmativeRestarts(t *testing.T) {
	eng, st, sender, _ := newTestEngine()
	ctx := context.Background()

	conv, err := st.GetOrCreate(ctx, phone)
	require.NoError(t, err)
	require.NoError(t, st.Transition(ctx, conv.ID, store.StepFinished, store.FieldUpdates{Name: store.String("Juan Perez")}))
	require.NoError(t, st.MarkStatus(ctx, conv.ID, store.StatusCompleted))

	require.NoError(t, eng.Handle(ctx, phone, "gracias", "text"))
	require.Contains(t, sender.last(t).Text.Body, "Ya registramos tus datos")
	require.Equal(t, store.StatusCompleted, st.conversation(phone).Status)

	require.NoError(t, eng.Handle(ctx, phone, "sí", "text"))
	got := st.conversation(phone)
	require.Equal(t, store.StepWaitingName, got.Step)
	require.Equal(t, store.StatusInProgress, got.Status)
	require.Nil(t, got.Name)
	require.Contains(t, sender.last(t).Text.Body, "Bienvenido")
}

func TestConcurrentSameIdentitySerialized(t *testing.T) {
	eng, st, _, _ := newTestEngine()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = eng.Handle(ctx, phone, "hola", "text")
		}()
	}
	wg.Wait()

	// Exactly one event consumed the START transition; every other one was
	// handled at WAITING_NAME and recorded a failed validation. No update
	// may be lost to an interleaved stale read.
	conv := st.conversation(phone)
	require.Equal(t, store.StepWaitingName, conv.Step)
	require.Equal(t, workers-1, st.failureCount(phone, store.StepWaitingName))
}
