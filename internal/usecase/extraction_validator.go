package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

const (
	// DefaultMaxTextLength caps free-text fields coming back from the model
	DefaultMaxTextLength = 500

	// maxDealTypeLength matches the tag column width
	maxDealTypeLength = 50
)

var (
	currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

	// A price string is a number with an optional currency code or symbol
	// on either side: "€ 6,99", "6.99 EUR", "US$ 1,299.00", "6,-".
	// Letters inside the number ("1e3", "3 for 10") do not match.
	priceStringRegex = regexp.MustCompile(
		`^[\s\p{Sc}]*(?:\p{L}{1,3}[\s\p{Sc}]*)?` +
			`(-?[0-9][0-9.,\s]*?)` +
			`[\s\p{Sc},.\-]*(?:\p{L}{1,3}[\s\p{Sc}.]*)?$`)

	recordValidate = newRecordValidate()
)

// Optional amounts that are dropped, not rejected, when they break a rule
var optionalAmountFields = map[string]func(*domain.ValidatedPriceRecord){
	"original_price":        func(r *domain.ValidatedPriceRecord) { r.OriginalPrice = nil },
	"discount_percentage":   func(r *domain.ValidatedPriceRecord) { r.DiscountPercentage = nil },
	"discount_fixed_amount": func(r *domain.ValidatedPriceRecord) { r.DiscountFixedAmount = nil },
}

// newRecordValidate builds the struct validator for ValidatedPriceRecord.
// Errors report fields by their JSON names.
func newRecordValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("currency_code", func(fl validator.FieldLevel) bool {
		return currencyCodeRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register currency_code validation: %v", err))
	}
	v.RegisterStructValidation(availabilityRules, domain.ValidatedPriceRecord{})
	return v
}

// availabilityRules: an item on sale needs a positive price and a currency
func availabilityRules(sl validator.StructLevel) {
	record, ok := sl.Current().Interface().(domain.ValidatedPriceRecord)
	if !ok || !record.IsAvailable {
		return
	}
	if record.Price == 0 {
		sl.ReportError(record.Price, "price", "Price", "available_price", "")
	}
	if record.Currency == "" {
		sl.ReportError(record.Currency, "currency", "Currency", "available_currency", "")
	}
}

// ValidatorConfig holds configuration for the extraction validator
type ValidatorConfig struct {
	MaxTextLength int
	Logger        *zap.Logger
}

// ExtractionValidator turns untyped vision output into a ValidatedPriceRecord.
// Values are coerced first; the range and format rules are the validate
// tags on the record. It holds no per-call state, so one instance is safe
// for concurrent use.
type ExtractionValidator struct {
	maxTextLength int
	logger        *zap.Logger
}

// NewExtractionValidator creates a new extraction validator
func NewExtractionValidator(config ValidatorConfig) *ExtractionValidator {
	maxLen := config.MaxTextLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}

	return &ExtractionValidator{
		maxTextLength: maxLen,
		logger:        logger,
	}
}

// Validate checks and coerces one raw extraction. It never panics on odd
// input: every rejection comes back as a *domain.ValidationError.
func (v *ExtractionValidator) Validate(raw domain.RawExtraction) (*domain.ValidatedPriceRecord, error) {
	if raw == nil {
		return nil, &domain.ValidationError{Kind: domain.ValidationMalformedPayload, Field: "$", Value: nil}
	}

	blocked, err := coerceBool(raw, "is_blocked", false)
	if err != nil {
		return nil, err
	}
	if blocked {
		blockingType, _ := coerceString(raw["blocking_type"])
		return nil, &domain.ValidationError{Kind: domain.ValidationBlocked, Field: "is_blocked", Value: blockingType}
	}

	available, err := coerceBool(raw, "is_available", true)
	if err != nil {
		return nil, err
	}

	record := &domain.ValidatedPriceRecord{
		IsAvailable:    available,
		AvailableSizes: []string{},
	}

	if record.Price, err = coercePrice(raw, available); err != nil {
		return nil, err
	}
	if record.Currency, err = normalizeCurrency(raw); err != nil {
		return nil, err
	}

	record.ProductName = v.boundedString(record, raw, "product_name", v.maxTextLength)
	record.StoreName = v.boundedString(record, raw, "store_name", v.maxTextLength)
	record.DealType = v.boundedString(record, raw, "deal_type", maxDealTypeLength)
	record.DealDescription = v.boundedString(record, raw, "deal_description", v.maxTextLength)
	record.Notes = v.boundedString(record, raw, "notes", v.maxTextLength)

	record.OriginalPrice = optionalAmount(record, raw, "original_price")
	record.DiscountPercentage = optionalAmount(record, raw, "discount_percentage")
	record.DiscountFixedAmount = optionalAmount(record, raw, "discount_fixed_amount")

	record.AvailableSizes = coerceStringList(raw["available_sizes"])

	if record.IsSizeMatched, err = coerceBool(raw, "is_size_matched", true); err != nil {
		return nil, err
	}

	if err := recordValidate.Struct(record); err != nil {
		if err = v.dropInvalidOptionals(record, raw, err); err != nil {
			return nil, toValidationError(err, raw)
		}
	}

	if record.OriginalPrice != nil && record.Price > 0 && *record.OriginalPrice < record.Price {
		record.Warnings = append(record.Warnings, domain.Warning{
			Kind:    domain.WarningOriginalBelowPrice,
			Field:   "original_price",
			Message: fmt.Sprintf("original price %.2f is below price %.2f", *record.OriginalPrice, record.Price),
		})
		v.logger.Warn("extraction data quality: original price below price",
			zap.Float64("price", record.Price),
			zap.Float64("original_price", *record.OriginalPrice),
		)
	}

	return record, nil
}

// coercePrice reads the price as a number. Range rules are left to the
// struct check; only what the tags cannot express is rejected here.
func coercePrice(raw domain.RawExtraction, available bool) (float64, error) {
	value, present := raw["price"]
	if !present || value == nil {
		if available {
			return 0, &domain.ValidationError{Kind: domain.ValidationMissingField, Field: "price", Value: value}
		}
		return 0, nil
	}

	price, ok := coerceFloat(value)
	if !ok {
		return 0, &domain.ValidationError{Kind: domain.ValidationInvalidType, Field: "price", Value: value}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, &domain.ValidationError{Kind: domain.ValidationNonFinitePrice, Field: "price", Value: value}
	}
	return price, nil
}

// normalizeCurrency upper-cases the code. The "N/A" sentinel some
// responses use for unavailable items is treated as absent.
func normalizeCurrency(raw domain.RawExtraction) (string, error) {
	value := raw["currency"]
	s, isString := value.(string)
	if value != nil && !isString {
		return "", &domain.ValidationError{Kind: domain.ValidationInvalidCurrency, Field: "currency", Value: value}
	}

	code := strings.ToUpper(strings.TrimSpace(s))
	if code == "N/A" {
		return "", nil
	}
	return code, nil
}

// boundedString reads a free-text field and cuts it to maxLen runes,
// recording a truncation warning when it had to.
func (v *ExtractionValidator) boundedString(record *domain.ValidatedPriceRecord, raw domain.RawExtraction, field string, maxLen int) string {
	s, _ := coerceString(raw[field])
	s = strings.TrimSpace(s)

	length := utf8.RuneCountInString(s)
	if length <= maxLen {
		return s
	}

	record.Warnings = append(record.Warnings, domain.Warning{
		Kind:    domain.WarningTruncation,
		Field:   field,
		Message: fmt.Sprintf("truncated from %d to %d characters", length, maxLen),
	})
	v.logger.Warn("extraction field truncated",
		zap.String("field", field),
		zap.Int("original_length", length),
		zap.Int("max_length", maxLen),
	)

	return string([]rune(s)[:maxLen])
}

// optionalAmount reads an optional number; zero means absent. Values that
// are not numbers are dropped with a warning, range rules come later.
func optionalAmount(record *domain.ValidatedPriceRecord, raw domain.RawExtraction, field string) *float64 {
	value, present := raw[field]
	if !present || value == nil {
		return nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}

	amount, ok := coerceFloat(value)
	if ok && amount == 0 {
		return nil
	}
	if !ok || math.IsNaN(amount) || math.IsInf(amount, 0) {
		record.Warnings = append(record.Warnings, droppedFieldWarning(field, value))
		return nil
	}
	return &amount
}

// dropInvalidOptionals clears optional amounts that failed the struct check
// and returns whatever failures remain.
func (v *ExtractionValidator) dropInvalidOptionals(record *domain.ValidatedPriceRecord, raw domain.RawExtraction, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var remaining validator.ValidationErrors
	for _, fe := range fieldErrs {
		drop, ok := optionalAmountFields[fe.Field()]
		if !ok {
			remaining = append(remaining, fe)
			continue
		}
		drop(record)
		record.Warnings = append(record.Warnings, droppedFieldWarning(fe.Field(), raw[fe.Field()]))
		v.logger.Warn("extraction field dropped",
			zap.String("field", fe.Field()),
			zap.String("rule", fe.Tag()),
		)
	}
	if len(remaining) == 0 {
		return nil
	}
	return remaining
}

func droppedFieldWarning(field string, value any) domain.Warning {
	return domain.Warning{
		Kind:    domain.WarningDroppedField,
		Field:   field,
		Message: fmt.Sprintf("ignored unusable value %v", value),
	}
}

// coerceFloat accepts JSON numbers and numeric strings such as "6.99",
// "6,99", "€ 1.299,00" or "1,299.00".
func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return parsePriceString(v)
	default:
		return 0, false
	}
}

func parsePriceString(s string) (float64, bool) {
	match := priceStringRegex.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, false
	}
	cleaned := strings.Join(strings.Fields(match[1]), "")

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator comes last is the decimal one
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 <= 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func coerceBool(raw domain.RawExtraction, field string, fallback bool) (bool, error) {
	value, present := raw[field]
	if !present || value == nil {
		return fallback, nil
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		case "":
			return fallback, nil
		}
	}
	return false, &domain.ValidationError{Kind: domain.ValidationInvalidType, Field: field, Value: value}
}

func coerceString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// coerceStringList always returns a non-nil slice; a missing or null list
// is a known model failure and becomes empty.
func coerceStringList(value any) []string {
	out := []string{}
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if s, ok := coerceString(item); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		// Some responses flatten the list into "S, M, L"
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Struct check rules and the rejection each one stands for
var ruleKinds = map[string]domain.ValidationKind{
	"gte":                domain.ValidationNonPositivePrice,
	"available_price":    domain.ValidationNonPositivePrice,
	"lte":                domain.ValidationPriceOutOfRange,
	"currency_code":      domain.ValidationInvalidCurrency,
	"available_currency": domain.ValidationInvalidCurrency,
}

// toValidationError maps a struct check failure onto the domain error,
// reporting the raw value the model sent. Price failures win over others.
func toValidationError(err error, raw domain.RawExtraction) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Kind: domain.ValidationMalformedPayload, Field: "$", Value: err.Error()}
	}

	fe := fieldErrs[0]
	for _, candidate := range fieldErrs {
		if candidate.Field() == "price" {
			fe = candidate
			break
		}
	}

	kind, ok := ruleKinds[fe.Tag()]
	if !ok {
		kind = domain.ValidationInvalidType
	}
	value, present := raw[fe.Field()]
	if !present {
		value = fe.Value()
	}
	return &domain.ValidationError{Kind: kind, Field: fe.Field(), Value: value}
}
