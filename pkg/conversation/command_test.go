package conversation

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatshop/pkg/domain/model"
)

func TestCommandRoundTrip(t *testing.T) {
	id := uuid.New()
	commands := []Command{
		CategoryCmd{CategoryID: id},
		ProductCmd{ProductID: id},
		AdjustCmd{ProductID: id, Direction: -1},
		AdjustCmd{ProductID: id, Direction: 1},
		AddToCartCmd{ProductID: id},
		DecisionCmd{AdminID: 42, UserID: 7, OrderID: id, Decision: model.Reject},
		LanguageCmd{Code: "tur"},
		NavigateCmd{Target: TargetCheckout},
	}

	for _, cmd := range commands {
		encoded, err := Encode(cmd)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, cmd, decoded)
	}
}

func TestDecisionTokenFitsTransportLimit(t *testing.T) {
	cmd := DecisionCmd{
		AdminID:  math.MinInt64 + 1,
		UserID:   math.MaxInt64,
		OrderID:  uuid.New(),
		Decision: model.Accept,
	}

	encoded, err := Encode(cmd)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(encoded), MaxTokenLength)
	assert.True(t, strings.HasPrefix(encoded, "o:a:"))

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, cmd, decoded)
}

func TestEncodeRejectsInvalidCommands(t *testing.T) {
	_, err := Encode(AdjustCmd{ProductID: uuid.New(), Direction: 2})
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = Encode(LanguageCmd{Code: "a:b"})
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = Encode(LanguageCmd{Code: strings.Repeat("x", MaxTokenLength)})
	assert.ErrorIs(t, err, ErrTokenTooLong)
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	valid := encodeUUID(uuid.New())
	for _, token := range []string{
		"",
		"x:" + valid,
		"c",
		"c:" + valid + ":extra",
		"c:not-a-uuid",
		"p:" + valid[:10],
		"q:*:" + valid,
		"o:x:1:2:" + valid,
		"o:a:zz!:2:" + valid,
		"l:",
		"n:elsewhere",
		strings.Repeat("c", MaxTokenLength+1),
	} {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrMalformedToken, token)
	}
}
