package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/internal/realtime"
)

// fakeDuelStore mimics the record store, including the conditional
// write semantics the coordinator's exactly-once transitions rely on.
type fakeDuelStore struct {
	mu         sync.Mutex
	duels      map[string]entities.Duel
	challenges map[string]entities.Challenge
	health     map[string]map[string]entities.HealthDataPoint
	endpoints  map[string]entities.ApplicationEndpoint
}

func newFakeDuelStore() *fakeDuelStore {
	return &fakeDuelStore{
		duels:      make(map[string]entities.Duel),
		challenges: make(map[string]entities.Challenge),
		health:     make(map[string]map[string]entities.HealthDataPoint),
		endpoints:  make(map[string]entities.ApplicationEndpoint),
	}
}

func (s *fakeDuelStore) CreateDuel(ctx context.Context, duel entities.Duel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.duels[duel.Id]; ok {
		return storage.ErrConditionFailed
	}
	s.duels[duel.Id] = duel
	return nil
}

func (s *fakeDuelStore) GetDuel(ctx context.Context, duelId string) (entities.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	duel, ok := s.duels[duelId]
	if !ok {
		return entities.Duel{}, storage.ErrDuelNotFound
	}
	return duel, nil
}

func (s *fakeDuelStore) UpdateDuel(
	ctx context.Context,
	duelId string,
	opts storage.DuelUpdateOptions,
) (entities.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	duel, ok := s.duels[duelId]
	if !ok {
		return entities.Duel{}, storage.ErrConditionFailed
	}
	if len(opts.ExpectStatus) > 0 {
		matched := false
		for _, status := range opts.ExpectStatus {
			if duel.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return entities.Duel{}, storage.ErrConditionFailed
		}
	}
	if opts.ExpectUser1StakeStatus != nil && duel.User1StakeStatus != *opts.ExpectUser1StakeStatus {
		return entities.Duel{}, storage.ErrConditionFailed
	}
	if opts.ExpectUser2StakeStatus != nil && duel.User2StakeStatus != *opts.ExpectUser2StakeStatus {
		return entities.Duel{}, storage.ErrConditionFailed
	}
	if opts.User2 != nil {
		duel.User2 = *opts.User2
	}
	if opts.Status != nil {
		duel.Status = *opts.Status
	}
	if opts.User1Score != nil {
		duel.User1Score = *opts.User1Score
	}
	if opts.User2Score != nil {
		duel.User2Score = *opts.User2Score
	}
	if opts.Winner != nil {
		duel.Winner = *opts.Winner
	}
	if opts.StakingDeadline != nil {
		deadline := *opts.StakingDeadline
		duel.StakingDeadline = &deadline
	}
	if opts.DuelStartTime != nil {
		start := *opts.DuelStartTime
		duel.DuelStartTime = &start
	}
	if opts.DuelEndTime != nil {
		end := *opts.DuelEndTime
		duel.DuelEndTime = &end
	}
	if opts.User1StakeStatus != nil {
		duel.User1StakeStatus = *opts.User1StakeStatus
	}
	if opts.User2StakeStatus != nil {
		duel.User2StakeStatus = *opts.User2StakeStatus
	}
	s.duels[duelId] = duel
	return duel, nil
}

func (s *fakeDuelStore) GetChallenge(ctx context.Context, challengeId string) (entities.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[challengeId]
	if !ok {
		return entities.Challenge{}, storage.ErrChallengeNotFound
	}
	return challenge, nil
}

func (s *fakeDuelStore) PutChallenge(ctx context.Context, challenge entities.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.Id] = challenge
	return nil
}

func (s *fakeDuelStore) PutHealthData(ctx context.Context, point entities.HealthDataPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s#%s#%s", point.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"), point.UserId, point.DataType)
	if s.health[point.DuelId] == nil {
		s.health[point.DuelId] = make(map[string]entities.HealthDataPoint)
	}
	s.health[point.DuelId][key] = point
	return nil
}

func (s *fakeDuelStore) LatestReading(ctx context.Context, duelId, userId, dataType string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest entities.HealthDataPoint
	found := false
	for _, point := range s.health[duelId] {
		if point.UserId != userId || point.DataType != dataType {
			continue
		}
		if !found || point.Timestamp.After(latest.Timestamp) {
			latest = point
			found = true
		}
	}
	if !found {
		return 0, nil
	}
	return latest.Value, nil
}

func (s *fakeDuelStore) FetchHealthData(
	ctx context.Context,
	duelId string,
	lastKey map[string]types.AttributeValue,
	limit int32,
) ([]entities.HealthDataPoint, map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.health[duelId]))
	for key := range s.health[duelId] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	points := make([]entities.HealthDataPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, s.health[duelId][key])
	}
	return points, nil, nil
}

func (s *fakeDuelStore) GetApplicationEndpoint(ctx context.Context, userId string) (entities.ApplicationEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[userId]
	if !ok {
		return entities.ApplicationEndpoint{}, storage.ErrApplicationEndpointNotFound
	}
	return endpoint, nil
}

func (s *fakeDuelStore) PutApplicationEndpoint(ctx context.Context, endpoint entities.ApplicationEndpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[endpoint.UserId] = endpoint
	return nil
}

// fakeMatchCache mimics the ephemeral store. Pops are atomic under one
// lock, matching the exclusivity of the real set pop.
type fakeMatchCache struct {
	mu       sync.Mutex
	waiting  map[string][]entities.MatchEntry
	entries  map[string]entities.MatchEntry
	confirms map[string]map[string]string
	markers  map[string]bool
}

func newFakeMatchCache() *fakeMatchCache {
	return &fakeMatchCache{
		waiting:  make(map[string][]entities.MatchEntry),
		entries:  make(map[string]entities.MatchEntry),
		confirms: make(map[string]map[string]string),
		markers:  make(map[string]bool),
	}
}

func (c *fakeMatchCache) HasWaiting(ctx context.Context, challengeId string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiting[challengeId]) > 0, nil
}

func (c *fakeMatchCache) PushEntry(ctx context.Context, challengeId string, entry entities.MatchEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiting[challengeId] = append(c.waiting[challengeId], entry)
	return nil
}

func (c *fakeMatchCache) PopEntry(ctx context.Context, challengeId string) (*entities.MatchEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.waiting[challengeId]
	if len(queue) == 0 {
		return nil, nil
	}
	entry := queue[0]
	c.waiting[challengeId] = queue[1:]
	return &entry, nil
}

func (c *fakeMatchCache) SetDuelEntry(ctx context.Context, entry entities.MatchEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.DuelId] = entry
	return nil
}

func (c *fakeMatchCache) GetDuelEntry(ctx context.Context, duelId string) (*entities.MatchEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[duelId]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (c *fakeMatchCache) DeleteDuelEntry(ctx context.Context, duelId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, duelId)
	return nil
}

func (c *fakeMatchCache) OpenConfirmation(ctx context.Context, duelId, user1, user2 string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirms[duelId] = map[string]string{
		user1: entities.AnswerPending,
		user2: entities.AnswerPending,
	}
	return nil
}

func (c *fakeMatchCache) RecordAnswer(ctx context.Context, duelId, userId, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if record, ok := c.confirms[duelId]; ok {
		record[userId] = answer
	}
	return nil
}

func (c *fakeMatchCache) GetConfirmations(ctx context.Context, duelId string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := make(map[string]string, len(c.confirms[duelId]))
	for userId, answer := range c.confirms[duelId] {
		record[userId] = answer
	}
	return record, nil
}

func (c *fakeMatchCache) ClearConfirmation(ctx context.Context, duelId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.confirms, duelId)
	return nil
}

func (c *fakeMatchCache) SetStakingMarker(ctx context.Context, duelId string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers[duelId] = true
	return nil
}

func (c *fakeMatchCache) HasStakingMarker(ctx context.Context, duelId string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markers[duelId], nil
}

func (c *fakeMatchCache) ClearStakingMarker(ctx context.Context, duelId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markers, duelId)
	return nil
}

type emittedEvent struct {
	Room    string
	Type    string
	Payload interface{}
}

// fakeChannel records room broadcasts instead of writing to sockets.
type fakeChannel struct {
	mu      sync.Mutex
	next    int
	clients map[string]realtime.Sender
	events  []emittedEvent
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{clients: make(map[string]realtime.Sender)}
}

func (c *fakeChannel) Register(client realtime.Sender) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	handle := fmt.Sprintf("handle-%d", c.next)
	c.clients[handle] = client
	return handle
}

func (c *fakeChannel) Unregister(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, handle)
}

func (c *fakeChannel) Lookup(handle string) (realtime.Sender, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	client, ok := c.clients[handle]
	return client, ok
}

func (c *fakeChannel) Join(handle string, roomId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.clients[handle]; !ok {
		return realtime.ErrUnknownHandle
	}
	return nil
}

func (c *fakeChannel) Emit(roomId string, event string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emittedEvent{Room: roomId, Type: event, Payload: payload})
}

func (c *fakeChannel) eventsOfType(eventType string) []emittedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []emittedEvent
	for _, event := range c.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type pushedNotification struct {
	EndpointArn string
	Title       string
	Body        string
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []pushedNotification
}

func (p *fakePusher) SendPushNotification(ctx context.Context, endpointArn, title, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushedNotification{EndpointArn: endpointArn, Title: title, Body: body})
	return nil
}

type nopSender struct{}

func (nopSender) WriteJSON(v interface{}) error { return nil }
func (nopSender) Close() error                  { return nil }

type fixture struct {
	store       *fakeDuelStore
	cache       *fakeMatchCache
	channel     *fakeChannel
	pusher      *fakePusher
	coordinator *Coordinator
}

// newFixture wires a coordinator against in-memory fakes. Windows are
// long so deadline timers never fire mid-test; timeout handlers are
// invoked directly where a test needs them.
func newFixture() *fixture {
	store := newFakeDuelStore()
	matchCache := newFakeMatchCache()
	channel := newFakeChannel()
	pusher := &fakePusher{}
	coordinator := NewCoordinator(store, matchCache, channel, pusher, CoordinatorConfig{
		StakingWindow:        time.Hour,
		ConfirmationWindow:   time.Hour,
		ForwardSkewTolerance: 5 * time.Minute,
	})
	return &fixture{
		store:       store,
		cache:       matchCache,
		channel:     channel,
		pusher:      pusher,
		coordinator: coordinator,
	}
}

func (f *fixture) seedChallenge(challenge entities.Challenge) {
	f.store.challenges[challenge.Id] = challenge
}

func (f *fixture) seedDuel(duel entities.Duel) {
	f.store.duels[duel.Id] = duel
}

func (f *fixture) duel(duelId string) entities.Duel {
	duel, _ := f.store.GetDuel(context.Background(), duelId)
	return duel
}

var stepsChallenge = entities.Challenge{
	Id:          "challenge-steps",
	Name:        "10k steps",
	Unit:        entities.UnitSteps,
	TargetValue: 10000,
	StakeAmount: 5,
	Duration:    24 * time.Hour,
}
