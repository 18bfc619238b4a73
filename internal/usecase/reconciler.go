package usecase

import (
	"math"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// DefaultConsistencyTolerance is the relative tolerance between a reported
// total and per-unit times quantity
const DefaultConsistencyTolerance = 0.01

// minAbsoluteTolerance keeps near-zero values from failing the consistency check
const minAbsoluteTolerance = 0.005

const databaseNote = "Values taken directly from the local food database."

// Reconciler turns matched and enriched records into resolved food items
type Reconciler struct {
	tolerance float64
	observer  Observer
	logger    *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(tolerance float64, observer Observer, logger *zap.Logger) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultConsistencyTolerance
	}
	if observer == nil {
		observer = NopObserver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{tolerance: tolerance, observer: observer, logger: logger}
}

// Reconcile returns matched items first, then enriched items, each group in
// mention order. Every returned item satisfies total = per-unit * quantity.
func (r *Reconciler) Reconcile(matched []domain.MatchedFood, enriched []domain.EnrichedFood) []domain.ResolvedFoodItem {
	items := make([]domain.ResolvedFoodItem, 0, len(matched)+len(enriched))
	for _, m := range matched {
		items = append(items, r.fromDatabase(m))
	}
	for _, e := range enriched {
		items = append(items, r.fromEnriched(e))
	}
	return items
}

// fromDatabase computes totals locally from the reference row.
func (r *Reconciler) fromDatabase(m domain.MatchedFood) domain.ResolvedFoodItem {
	perServing := m.MatchedFood.PerServing()
	servingUnit := m.MatchedFood.ServingUnit()
	quantity := ParseQuantity(m.Quantity)
	unit := defaultUnit(m.Unit, servingUnit)
	note := databaseNote

	// Convert between measures when both are known, e.g. "480 ml" of a per-cup food
	if converted, ok := convertQuantity(quantity, unit, servingUnit); ok {
		note = databaseNote + " Converted from " + FormatQuantity(quantity) + " " + unit + "."
		quantity = converted
		unit = servingUnit
	}

	name := m.MatchedFood.FoodName
	if name == "" && m.MatchedFoodName != nil {
		name = *m.MatchedFoodName
	}

	return domain.ResolvedFoodItem{
		MentionID:             m.ID,
		FoodName:              name,
		DBServingSize:         1,
		DBServingUnit:         servingUnit,
		DBNutritionPerServing: perServing,
		UserQuantity:          quantity,
		UserUnit:              unit,
		TotalNutritionForUser: perServing.Scale(quantity).Sanitized(),
		Note:                  note,
	}
}

// fromEnriched derives a missing per-unit value from totals, and recomputes
// totals that disagree with per-unit times quantity.
func (r *Reconciler) fromEnriched(e domain.EnrichedFood) domain.ResolvedFoodItem {
	quantity := domain.NonNegative(e.Quantity)
	if quantity == 0 {
		quantity = 1
	}
	unit := defaultUnit(e.Unit)
	total := e.Total.Sanitized()

	var perUnit domain.Macros
	if e.PerUnit == nil {
		perUnit = total.Scale(1 / quantity).Sanitized()
	} else {
		perUnit = e.PerUnit.Sanitized()
		expected := perUnit.Scale(quantity)
		if !r.consistent(total, expected) {
			r.observer.ConsistencyCorrected()
			r.logger.Debug("recomputed inconsistent total",
				zap.String("mention_id", e.MentionID),
				zap.String("food", e.FoodName),
				zap.Float64("reported_calories", total.Calories),
				zap.Float64("expected_calories", expected.Calories),
			)
			total = expected
		}
	}

	note := e.Note
	if note == "" {
		note = estimateNote
	}

	return domain.ResolvedFoodItem{
		MentionID:             e.MentionID,
		FoodName:              foodNameOr(e.FoodName),
		DBServingSize:         1,
		DBServingUnit:         unit,
		DBNutritionPerServing: perUnit,
		UserQuantity:          quantity,
		UserUnit:              unit,
		TotalNutritionForUser: total,
		Note:                  note,
		Source:                e.Source,
	}
}

func (r *Reconciler) consistent(total, expected domain.Macros) bool {
	pairs := [][2]float64{
		{total.Calories, expected.Calories},
		{total.Protein, expected.Protein},
		{total.Carbs, expected.Carbs},
		{total.Fat, expected.Fat},
	}
	for _, p := range pairs {
		allowed := math.Max(r.tolerance*math.Abs(p[1]), minAbsoluteTolerance)
		if math.Abs(p[0]-p[1]) > allowed {
			return false
		}
	}
	return true
}

// convertQuantity expresses quantity of unit in serving units, when both
// are known measures that differ.
func convertQuantity(quantity float64, unit, servingUnit string) (float64, bool) {
	from, to := NormalizeUnit(unit), NormalizeUnit(servingUnit)
	if from == to {
		return 0, false
	}
	fromGrams, ok := GramsPerUnit(from)
	if !ok {
		return 0, false
	}
	toGrams, ok := GramsPerUnit(to)
	if !ok || toGrams == 0 {
		return 0, false
	}
	return quantity * fromGrams / toGrams, true
}
