package matchhub

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"vibelink/backend/internal/errs"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/presence"
	"vibelink/backend/internal/storage"

	"github.com/google/uuid"
)

// ErrMatchCancelled is delivered on a request's Result channel when its
// owner cancelled it before a partner was found.
var ErrMatchCancelled = errors.New("match request cancelled by owner")

type matchSubmission struct {
	req   *models.MatchRequest
	reply chan error
}

type cancelRequest struct {
	userID string
	reply  chan bool
}

// Matcher pairs waiting users by mutual gender compatibility. All queue
// mutations happen on the single Run goroutine, which is what makes a
// match commit atomic with respect to concurrent requests and cancels:
// two simultaneous requests for the same pair serialize through
// requestCh and produce exactly one session.
type Matcher struct {
	Registry    *presence.Registry
	Coordinator *Coordinator
	Storage     storage.Storage

	sweepInterval time.Duration
	timeout       time.Duration

	requestCh chan matchSubmission
	cancelCh  chan cancelRequest
	stopCh    chan struct{}

	// Queue - черга користувачів, які чекають на з'єднання.
	// order зберігає послідовність прибуття для чесного перебору.
	queue map[string]*models.MatchRequest
	order []string

	rnd *rand.Rand
}

// NewMatcher створює новий Matcher.
func NewMatcher(reg *presence.Registry, coord *Coordinator, s storage.Storage, sweepInterval, timeout time.Duration) *Matcher {
	return &Matcher{
		Registry:      reg,
		Coordinator:   coord,
		Storage:       s,
		sweepInterval: sweepInterval,
		timeout:       timeout,
		requestCh:     make(chan matchSubmission),
		cancelCh:      make(chan cancelRequest),
		stopCh:        make(chan struct{}),
		queue:         make(map[string]*models.MatchRequest),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RequestMatch admits a user to the waiting pool. Validation errors
// (errs.ErrAlreadyMatching) come back synchronously; the terminal
// outcome (a partner, a timeout or a cancel) arrives exactly once on
// the returned request's Result channel.
func (m *Matcher) RequestMatch(userID, gender, preferredGender, callType string, isPremium bool) (*models.MatchRequest, error) {
	req := &models.MatchRequest{
		RequestID:       uuid.New().String(),
		UserID:          userID,
		Gender:          gender,
		PreferredGender: preferredGender,
		CallType:        callType,
		IsPremium:       isPremium,
		Status:          models.RequestWaiting,
		CreatedAt:       time.Now(),
		Result:          make(chan models.MatchOutcome, 1),
	}

	// Monetization rule: gender filtering is premium-only. A non-premium
	// request matches anyone regardless of what the client sent.
	if !isPremium {
		req.PreferredGender = models.PrefAnyone
	}

	sub := matchSubmission{req: req, reply: make(chan error, 1)}
	select {
	case m.requestCh <- sub:
	case <-m.stopCh:
		return nil, errors.New("matcher stopped")
	}

	if err := <-sub.reply; err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel removes the user's waiting request. Returns false when there
// is nothing to cancel, including the race where the matcher has just
// committed a match: the owner then learns of the match first.
func (m *Matcher) Cancel(userID string) bool {
	c := cancelRequest{userID: userID, reply: make(chan bool, 1)}
	select {
	case m.cancelCh <- c:
	case <-m.stopCh:
		return false
	}
	return <-c.reply
}

// Run запускає основну Goroutine Matcher'а.
func (m *Matcher) Run() {
	log.Println("Matcher Service started.")

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case sub := <-m.requestCh:
			sub.reply <- m.handleSubmit(sub.req)

		case c := <-m.cancelCh:
			c.reply <- m.handleCancel(c.userID)

		case <-ticker.C:
			m.sweep()

		case <-m.stopCh:
			return
		}
	}
}

// Stop terminates the Run loop. Pending requests stay queued; callers
// of RequestMatch/Cancel after Stop get a fast failure.
func (m *Matcher) Stop() {
	close(m.stopCh)
}

// ResetWaitingPool очищає Redis-дзеркало черги пошуку після рестарту:
// записи, що пережили його, посилаються на сокети, яких вже немає.
func (m *Matcher) ResetWaitingPool() {
	ids, err := m.Storage.GetWaitingPool()
	if err != nil {
		log.Printf("ERROR: Failed to read waiting pool mirror: %v", err)
		return
	}
	for _, userID := range ids {
		if err := m.Storage.RemoveFromWaitingPool(userID); err != nil {
			log.Printf("WARNING: Failed to clear stale waiting pool entry %s: %v", userID, err)
		}
	}
	if len(ids) > 0 {
		log.Printf("Cleared %d stale waiting pool entries.", len(ids))
	}
}

func (m *Matcher) handleSubmit(req *models.MatchRequest) error {
	if _, ok := m.queue[req.UserID]; ok {
		return errs.ErrAlreadyMatching
	}
	if e, ok := m.Registry.Get(req.UserID); ok && e.Status == presence.StatusInCall {
		return errs.ErrAlreadyMatching
	}

	m.queue[req.UserID] = req
	m.order = append(m.order, req.UserID)
	m.Registry.SetStatus(req.UserID, presence.StatusWaiting)
	m.Registry.UpdatePreference(req.UserID, req.PreferredGender)
	if err := m.Storage.AddToWaitingPool(req.UserID); err != nil {
		log.Printf("WARNING: failed to mirror waiting pool add for %s: %v", req.UserID, err)
	}
	log.Printf("New match request added to queue: %s", req.UserID)

	m.tryMatch(req)
	return nil
}

func (m *Matcher) handleCancel(userID string) bool {
	req, ok := m.queue[userID]
	if !ok {
		return false
	}
	m.removeFromQueue(userID)
	req.Status = models.RequestEnded
	req.Result <- models.MatchOutcome{Err: ErrMatchCancelled}
	return true
}

// sweep expires requests past the match timeout and retries the rest.
func (m *Matcher) sweep() {
	now := time.Now()
	for _, userID := range append([]string(nil), m.order...) {
		req, ok := m.queue[userID]
		if !ok {
			continue // matched earlier in this sweep
		}
		if now.Sub(req.CreatedAt) > m.timeout {
			m.removeFromQueue(userID)
			req.Status = models.RequestEnded
			req.Result <- models.MatchOutcome{Err: errs.ErrNoMatchFound}
			log.Printf("Match request timed out: %s", userID)
			continue
		}
		m.tryMatch(req)
	}
}

// tryMatch намагається знайти співрозмовника для даного запиту (req).
func (m *Matcher) tryMatch(req *models.MatchRequest) {
	if _, ok := m.queue[req.UserID]; !ok {
		return
	}

	var compatible, preferred []*models.MatchRequest
	for _, targetID := range m.order {
		if targetID == req.UserID {
			continue // не шукати пару із самим собою
		}
		cand, ok := m.queue[targetID]
		if !ok || !mutuallyCompatible(req, cand) {
			continue
		}
		compatible = append(compatible, cand)
		// Exact-preference premium matches get priority so paying users
		// with a narrow filter are not starved by random selection.
		if cand.IsPremium && cand.PreferredGender != models.PrefAnyone {
			preferred = append(preferred, cand)
		}
	}

	pool := compatible
	if len(preferred) > 0 {
		pool = preferred
	}
	if len(pool) == 0 {
		return
	}

	// Uniform random pick prevents deterministic gaming of the matcher.
	m.commit(req, pool[m.rnd.Intn(len(pool))])
}

// mutuallyCompatible checks both directions of the preference rule:
// a premium side must accept the other's gender, a non-premium side
// imposes no constraint. Call types must agree.
func mutuallyCompatible(a, b *models.MatchRequest) bool {
	if a.CallType != b.CallType {
		return false
	}
	if a.IsPremium && !models.PreferenceAccepts(a.PreferredGender, b.Gender) {
		return false
	}
	if b.IsPremium && !models.PreferenceAccepts(b.PreferredGender, a.Gender) {
		return false
	}
	return true
}

// commit atomically pairs two requests: both leave the queue before any
// notification goes out, so no concurrent attempt can double-book
// either side.
func (m *Matcher) commit(req, cand *models.MatchRequest) {
	m.removeFromQueue(req.UserID)
	m.removeFromQueue(cand.UserID)

	session, err := m.Coordinator.CreateSession(req.UserID, cand.UserID, req.CallType)
	if err != nil {
		log.Printf("Error creating session for %s and %s: %v", req.UserID, cand.UserID, err)
		outcome := models.MatchOutcome{Err: err}
		req.Status = models.RequestEnded
		cand.Status = models.RequestEnded
		req.Result <- outcome
		cand.Result <- outcome
		return
	}

	req.Status = models.RequestMatched
	cand.Status = models.RequestMatched
	m.Registry.SetStatus(req.UserID, presence.StatusInCall)
	m.Registry.SetStatus(cand.UserID, presence.StatusInCall)

	// Запит, який ініціював пошук, надсилає offer.
	req.Result <- models.MatchOutcome{
		SessionID: session.SessionID,
		PartnerID: cand.UserID,
		CallType:  session.CallType,
		Initiator: true,
	}
	cand.Result <- models.MatchOutcome{
		SessionID: session.SessionID,
		PartnerID: req.UserID,
		CallType:  session.CallType,
	}

	log.Printf("Match found: %s and %s in session %s", req.UserID, cand.UserID, session.SessionID)
}

func (m *Matcher) removeFromQueue(userID string) {
	delete(m.queue, userID)
	for i, id := range m.order {
		if id == userID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.Registry.SetStatus(userID, presence.StatusIdle)
	if err := m.Storage.RemoveFromWaitingPool(userID); err != nil {
		log.Printf("WARNING: failed to mirror waiting pool removal for %s: %v", userID, err)
	}
}
