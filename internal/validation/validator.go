package validation

import (
	"errors"
	"fmt"
	"strings"

	"foodcart/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidOrder заказ не прошёл проверку, текст ошибки перечисляет нарушения
var ErrInvalidOrder = errors.New("некорректный заказ")

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("phone", validatePhone)
}

func ValidateOrder(order *models.Order) error {
	if order == nil {
		return fmt.Errorf("%w: пустой заказ", ErrInvalidOrder)
	}

	if err := validate.Struct(order); err != nil {
		return formatValidationError(err)
	}

	if err := validateItemsAdditional(order.Items); err != nil {
		return err
	}

	return nil
}

func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.ReplaceAll(fl.Field().String(), " ", "")

	if len(phone) == 0 || phone[0] != '+' {
		return false
	}

	for _, c := range phone[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}

	totalLength := len(phone)
	return totalLength >= 5 && totalLength <= 20
}

// один товар не может встречаться в корзине дважды
func validateItemsAdditional(items []models.OrderItem) error {
	seen := make(map[int64]int, len(items))
	for i, item := range items {
		if first, ok := seen[item.ProductID]; ok {
			return fmt.Errorf("%w: products[%d]: товар %d уже указан в products[%d]", ErrInvalidOrder, i, item.ProductID, first)
		}
		seen[item.ProductID] = i
	}
	return nil
}

// свои текста ошибок
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	var b strings.Builder
	b.WriteString("Ошибки валидации:\n")
	for i, e := range validationErrors {
		var message string

		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s: поле обязательно для заполнения", e.Field())
		case "min":
			message = fmt.Sprintf("%s: минимум %s", e.Field(), e.Param())
		case "max":
			message = fmt.Sprintf("%s: максимальная длина - %s символов", e.Field(), e.Param())
		case "gt":
			message = fmt.Sprintf("%s: должно быть больше %s", e.Field(), e.Param())
		case "gte":
			message = fmt.Sprintf("%s: должно быть больше или равно %s", e.Field(), e.Param())
		case "lte":
			message = fmt.Sprintf("%s: должно быть не более %s", e.Field(), e.Param())
		case "oneof":
			message = fmt.Sprintf("%s: допустимые значения %s", e.Field(), e.Param())
		case "phone":
			message = fmt.Sprintf("%s: неверный формат телефона (ожидается +79991234567)", e.Field())
		default:
			message = fmt.Sprintf("%s: нарушено правило '%s'", e.Field(), e.Tag())
		}

		fmt.Fprintf(&b, "%d. %s\n", i+1, message)
	}

	return fmt.Errorf("%w: %s", ErrInvalidOrder, b.String())
}
