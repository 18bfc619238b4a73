package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// Diary defaults
const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = time.Second

	monthLayout = "2006-01"

	manualFoodName = "New Food"
	manualFoodNote = "Manually added food item"
)

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Analyzer runs one analysis invocation
type Analyzer interface {
	Analyze(ctx context.Context, text string, goals *domain.UserGoals) (*domain.AnalyzeResult, error)
}

// DiaryConfig holds configuration for the diary service
type DiaryConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DayAnalysis is the outcome of analyzing text into a day log
type DayAnalysis struct {
	Result *domain.AnalyzeResult `json:"result"`
	Day    *domain.DailyLog      `json:"day"`
	Added  int                   `json:"added"`
}

// DiaryService stores user profiles and day logs and feeds analysis results
// into them
type DiaryService struct {
	store    domain.KeyValueStore
	analyzer Analyzer
	config   DiaryConfig
	logger   *zap.Logger

	newID func() string
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

// keyLock is a per-key mutex shared by the callers currently holding or
// waiting for it
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewDiaryService creates a new diary service with dependencies
func NewDiaryService(store domain.KeyValueStore, analyzer Analyzer, config DiaryConfig, logger *zap.Logger) *DiaryService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DiaryService{
		store:    store,
		analyzer: analyzer,
		config:   config,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
		sleep:    sleepContext,
		locks:    make(map[string]*keyLock),
	}
}

func userKey(userID string) string {
	return "user:" + userID
}

func dayPrefix(userID string) string {
	return "day:" + userID + ":"
}

func dayKey(userID, date string) string {
	return dayPrefix(userID) + date
}

// GetProfile returns a stored profile.
func (s *DiaryService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	var profile domain.UserProfile
	if err := s.load(ctx, userKey(userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile creates or replaces a profile.
func (s *DiaryService) SaveProfile(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", domain.ErrInvalidRequest)
	}
	if err := validateUserID(profile.ID); err != nil {
		return nil, err
	}
	if profile.Goals != nil && profile.Goals.DailyCalories < 0 {
		return nil, fmt.Errorf("%w: dailyCalories must not be negative", domain.ErrInvalidRequest)
	}

	saved := *profile
	saved.Name = strings.TrimSpace(saved.Name)
	saved.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, userKey(saved.ID), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetDay returns a day log with progress recomputed against the current profile goals.
func (s *DiaryService) GetDay(ctx context.Context, userID, date string) (*domain.DailyLog, error) {
	if err := validateDay(userID, date); err != nil {
		return nil, err
	}

	day, err := s.loadDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	day.Progress = Aggregate(day.Items(), s.goalsFor(ctx, userID))
	return day, nil
}

// ListDays returns the user's day logs sorted by date. A non-empty month
// (YYYY-MM) restricts the result to that month.
func (s *DiaryService) ListDays(ctx context.Context, userID, month string) ([]domain.DailyLog, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if month != "" {
		if _, err := time.Parse(monthLayout, month); err != nil {
			return nil, fmt.Errorf("%w: month must be YYYY-MM", domain.ErrInvalidRequest)
		}
	}

	prefix := dayPrefix(userID)
	if month != "" {
		prefix += month + "-"
	}

	keys, err := s.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	goals := s.goalsFor(ctx, userID)
	days := make([]domain.DailyLog, 0, len(keys))
	for _, key := range keys {
		var day domain.DailyLog
		if err := s.load(ctx, key, &day); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // expired between Keys and Get
			}
			return nil, err
		}
		day.Progress = Aggregate(day.Items(), goals)
		days = append(days, day)
	}
	return days, nil
}

// AnalyzeIntoDay analyzes text and merges the resolved items into the day
// log. The whole analysis is retried with linear backoff on failure. When
// goals is nil the profile goals are used.
func (s *DiaryService) AnalyzeIntoDay(ctx context.Context, userID, date, text string, goals *domain.UserGoals) (*DayAnalysis, error) {
	if err := validateDay(userID, date); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidRequest)
	}
	if goals == nil {
		goals = s.goalsFor(ctx, userID)
	}

	result, err := s.analyzeWithRetry(ctx, text, goals)
	if err != nil {
		return nil, err
	}

	var added int
	day, err := s.updateDay(ctx, userID, date, func(day *domain.DailyLog) error {
		day.Foods, added = MergeFoods(day.Foods, result.Nutrition, s.newID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	day.Progress = Aggregate(day.Items(), goals)

	return &DayAnalysis{Result: result, Day: day, Added: added}, nil
}

func (s *DiaryService) analyzeWithRetry(ctx context.Context, text string, goals *domain.UserGoals) (*domain.AnalyzeResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		result, err := s.analyzer.Analyze(ctx, text, goals)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, domain.ErrInvalidRequest) || attempt == s.config.MaxAttempts {
			break
		}

		backoff := s.config.RetryBackoff * time.Duration(attempt)
		s.logger.Warn("analysis failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.config.MaxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := s.sleep(ctx, backoff); err != nil {
			break
		}
	}
	return nil, lastErr
}

// AddFood appends a manually entered food to the day log. Missing fields
// take manual-entry defaults and the total is recomputed from per-serving
// values.
func (s *DiaryService) AddFood(ctx context.Context, userID, date string, item domain.ResolvedFoodItem) (*domain.DailyLog, error) {
	if err := validateDay(userID, date); err != nil {
		return nil, err
	}

	food := domain.LoggedFood{ID: s.newID(), ResolvedFoodItem: normalizeManualItem(item)}
	day, err := s.updateDay(ctx, userID, date, func(day *domain.DailyLog) error {
		day.Foods = append(day.Foods, food)
		return nil
	})
	if err != nil {
		return nil, err
	}
	day.Progress = Aggregate(day.Items(), s.goalsFor(ctx, userID))
	return day, nil
}

// UpdateFood replaces a logged food, keeping its id.
func (s *DiaryService) UpdateFood(ctx context.Context, userID, date, foodID string, item domain.ResolvedFoodItem) (*domain.DailyLog, error) {
	if err := validateDay(userID, date); err != nil {
		return nil, err
	}

	day, err := s.modifyDay(ctx, userID, date, func(day *domain.DailyLog) error {
		idx := indexOfFood(day.Foods, foodID)
		if idx < 0 {
			return fmt.Errorf("%w: food %s", domain.ErrNotFound, foodID)
		}
		updated := normalizeManualItem(item)
		if item.Note == "" {
			updated.Note = day.Foods[idx].Note
		}
		if updated.Source == "" {
			updated.Source = day.Foods[idx].Source
		}
		updated.MentionID = day.Foods[idx].MentionID
		day.Foods[idx].ResolvedFoodItem = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	day.Progress = Aggregate(day.Items(), s.goalsFor(ctx, userID))
	return day, nil
}

// DeleteFood removes a logged food. Removing the last food deletes the day log.
func (s *DiaryService) DeleteFood(ctx context.Context, userID, date, foodID string) (*domain.DailyLog, error) {
	if err := validateDay(userID, date); err != nil {
		return nil, err
	}

	day, err := s.modifyDay(ctx, userID, date, func(day *domain.DailyLog) error {
		idx := indexOfFood(day.Foods, foodID)
		if idx < 0 {
			return fmt.Errorf("%w: food %s", domain.ErrNotFound, foodID)
		}
		day.Foods = append(day.Foods[:idx], day.Foods[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	day.Progress = Aggregate(day.Items(), s.goalsFor(ctx, userID))
	return day, nil
}

// updateDay applies fn to the day log, creating it when absent.
func (s *DiaryService) updateDay(ctx context.Context, userID, date string, fn func(*domain.DailyLog) error) (*domain.DailyLog, error) {
	return s.mutateDay(ctx, userID, date, true, fn)
}

// modifyDay applies fn to an existing day log.
func (s *DiaryService) modifyDay(ctx context.Context, userID, date string, fn func(*domain.DailyLog) error) (*domain.DailyLog, error) {
	return s.mutateDay(ctx, userID, date, false, fn)
}

func (s *DiaryService) mutateDay(ctx context.Context, userID, date string, create bool, fn func(*domain.DailyLog) error) (*domain.DailyLog, error) {
	key := dayKey(userID, date)
	unlock := s.lock(key)
	defer unlock()

	day, err := s.loadDay(ctx, userID, date)
	if err != nil {
		if !create || !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		day = &domain.DailyLog{UserID: userID, Date: date, Foods: []domain.LoggedFood{}}
	}

	if err := fn(day); err != nil {
		return nil, err
	}

	if len(day.Foods) == 0 {
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, err
		}
		day.Foods = []domain.LoggedFood{}
		return day, nil
	}

	if err := s.save(ctx, key, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *DiaryService) loadDay(ctx context.Context, userID, date string) (*domain.DailyLog, error) {
	var day domain.DailyLog
	if err := s.load(ctx, dayKey(userID, date), &day); err != nil {
		return nil, err
	}
	if day.Foods == nil {
		day.Foods = []domain.LoggedFood{}
	}
	return &day, nil
}

// goalsFor returns the profile goals, or nil when there is no profile.
func (s *DiaryService) goalsFor(ctx context.Context, userID string) *domain.UserGoals {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to load profile goals", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return profile.Goals
}

func (s *DiaryService) load(ctx context.Context, key string, v interface{}) error {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: corrupt record %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *DiaryService) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.store.Set(ctx, key, data, 0)
}

// lock serializes read-modify-write cycles on one key. The entry is removed
// once the last holder or waiter releases it.
func (s *DiaryService) lock(key string) func() {
	s.locksMu.Lock()
	kl, ok := s.locks[key]
	if !ok {
		kl = &keyLock{}
		s.locks[key] = kl
	}
	kl.refs++
	s.locksMu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()

		s.locksMu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(s.locks, key)
		}
		s.locksMu.Unlock()
	}
}

// lockCount returns the number of keys with a live lock entry.
func (s *DiaryService) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// normalizeManualItem fills manual-entry defaults and recomputes the total.
func normalizeManualItem(item domain.ResolvedFoodItem) domain.ResolvedFoodItem {
	item.FoodName = strings.TrimSpace(item.FoodName)
	if item.FoodName == "" {
		item.FoodName = manualFoodName
	}
	item.UserQuantity = domain.NonNegative(item.UserQuantity)
	if item.UserQuantity == 0 {
		item.UserQuantity = 1
	}
	item.UserUnit = defaultUnit(item.UserUnit)
	item.DBServingSize = 1
	item.DBServingUnit = defaultUnit(item.DBServingUnit, item.UserUnit)
	item.DBNutritionPerServing = item.DBNutritionPerServing.Sanitized()
	item.TotalNutritionForUser = item.DBNutritionPerServing.Scale(item.UserQuantity)
	if item.Note == "" {
		item.Note = manualFoodNote
	}
	return item
}

func indexOfFood(foods []domain.LoggedFood, id string) int {
	for i, f := range foods {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func validateUserID(userID string) error {
	if !userIDRegex.MatchString(userID) {
		return fmt.Errorf("%w: invalid user id", domain.ErrInvalidRequest)
	}
	return nil
}

func validateDay(userID, date string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidRequest)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
