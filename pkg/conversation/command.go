package conversation

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
)

// MaxTokenLength is the largest callback payload the chat transport accepts.
const MaxTokenLength = 64

var (
	ErrTokenTooLong   = errors.New("callback token exceeds transport limit")
	ErrMalformedToken = errors.New("malformed callback token")
)

// Command is a decoded callback token. Every variant below is one case;
// handlers switch on the concrete type.
type Command interface {
	encode() (string, error)
}

type CategoryCmd struct {
	CategoryID uuid.UUID
}

type ProductCmd struct {
	ProductID uuid.UUID
}

// AdjustCmd moves the transient quantity of the open product by one.
type AdjustCmd struct {
	ProductID uuid.UUID
	Direction int
}

type AddToCartCmd struct {
	ProductID uuid.UUID
}

type DecisionCmd struct {
	AdminID  model.UserID
	UserID   model.UserID
	OrderID  uuid.UUID
	Decision model.Decision
}

type LanguageCmd struct {
	Code string
}

type Target string

const (
	TargetCategories Target = "cats"
	TargetCart       Target = "cart"
	TargetClearCart  Target = "clear"
	TargetCheckout   Target = "checkout"
	TargetConfirm    Target = "confirm"
	TargetCancel     Target = "cancel"
)

type NavigateCmd struct {
	Target Target
}

const (
	tagCategory = "c"
	tagProduct  = "p"
	tagAdjust   = "q"
	tagAdd      = "a"
	tagDecision = "o"
	tagLanguage = "l"
	tagNavigate = "n"
)

// Encode renders the command as a callback token.
func Encode(cmd Command) (string, error) {
	token, err := cmd.encode()
	if err != nil {
		return "", err
	}
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}
	return token, nil
}

// Decode parses a callback token produced by Encode.
func Decode(token string) (Command, error) {
	if token == "" || len(token) > MaxTokenLength {
		return nil, ErrMalformedToken
	}
	parts := strings.Split(token, ":")

	switch parts[0] {
	case tagCategory:
		if len(parts) != 2 {
			return nil, ErrMalformedToken
		}
		id, err := decodeUUID(parts[1])
		if err != nil {
			return nil, err
		}
		return CategoryCmd{CategoryID: id}, nil
	case tagProduct:
		if len(parts) != 2 {
			return nil, ErrMalformedToken
		}
		id, err := decodeUUID(parts[1])
		if err != nil {
			return nil, err
		}
		return ProductCmd{ProductID: id}, nil
	case tagAdjust:
		if len(parts) != 3 {
			return nil, ErrMalformedToken
		}
		var direction int
		switch parts[1] {
		case "+":
			direction = 1
		case "-":
			direction = -1
		default:
			return nil, ErrMalformedToken
		}
		id, err := decodeUUID(parts[2])
		if err != nil {
			return nil, err
		}
		return AdjustCmd{ProductID: id, Direction: direction}, nil
	case tagAdd:
		if len(parts) != 2 {
			return nil, ErrMalformedToken
		}
		id, err := decodeUUID(parts[1])
		if err != nil {
			return nil, err
		}
		return AddToCartCmd{ProductID: id}, nil
	case tagDecision:
		return decodeDecision(parts)
	case tagLanguage:
		if len(parts) != 2 || parts[1] == "" {
			return nil, ErrMalformedToken
		}
		return LanguageCmd{Code: parts[1]}, nil
	case tagNavigate:
		if len(parts) != 2 {
			return nil, ErrMalformedToken
		}
		switch target := Target(parts[1]); target {
		case TargetCategories, TargetCart, TargetClearCart, TargetCheckout, TargetConfirm, TargetCancel:
			return NavigateCmd{Target: target}, nil
		}
	}
	return nil, ErrMalformedToken
}

func decodeDecision(parts []string) (Command, error) {
	if len(parts) != 5 {
		return nil, ErrMalformedToken
	}
	cmd := DecisionCmd{}
	switch parts[1] {
	case "a":
		cmd.Decision = model.Accept
	case "r":
		cmd.Decision = model.Reject
	default:
		return nil, ErrMalformedToken
	}
	admin, err := strconv.ParseInt(parts[2], 36, 64)
	if err != nil {
		return nil, ErrMalformedToken
	}
	user, err := strconv.ParseInt(parts[3], 36, 64)
	if err != nil {
		return nil, ErrMalformedToken
	}
	cmd.AdminID, cmd.UserID = model.UserID(admin), model.UserID(user)
	if cmd.OrderID, err = decodeUUID(parts[4]); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (c CategoryCmd) encode() (string, error) {
	return tagCategory + ":" + encodeUUID(c.CategoryID), nil
}

func (c ProductCmd) encode() (string, error) {
	return tagProduct + ":" + encodeUUID(c.ProductID), nil
}

func (c AdjustCmd) encode() (string, error) {
	var sign string
	switch c.Direction {
	case 1:
		sign = "+"
	case -1:
		sign = "-"
	default:
		return "", ErrMalformedToken
	}
	return tagAdjust + ":" + sign + ":" + encodeUUID(c.ProductID), nil
}

func (c AddToCartCmd) encode() (string, error) {
	return tagAdd + ":" + encodeUUID(c.ProductID), nil
}

func (c DecisionCmd) encode() (string, error) {
	choice := "a"
	if c.Decision == model.Reject {
		choice = "r"
	}
	return strings.Join([]string{
		tagDecision,
		choice,
		strconv.FormatInt(int64(c.AdminID), 36),
		strconv.FormatInt(int64(c.UserID), 36),
		encodeUUID(c.OrderID),
	}, ":"), nil
}

func (c LanguageCmd) encode() (string, error) {
	if c.Code == "" || strings.Contains(c.Code, ":") {
		return "", ErrMalformedToken
	}
	return tagLanguage + ":" + c.Code, nil
}

func (c NavigateCmd) encode() (string, error) {
	if c.Target == "" || strings.Contains(string(c.Target), ":") {
		return "", ErrMalformedToken
	}
	return tagNavigate + ":" + string(c.Target), nil
}

func encodeUUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func decodeUUID(s string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return uuid.Nil, ErrMalformedToken
	}
	return uuid.FromBytes(raw)
}
