package access_test

import (
	"context"
	"testing"

	"taskboard/internal/access"
	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gate                 *access.Gate
	owner, member, other *model.User
	board                *model.Board
	list                 *model.List
	card                 *model.Card
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	boards := repository.NewBoardRepository(db)
	lists := repository.NewListRepository(db)
	cards := repository.NewCardRepository(db)

	f := &fixture{
		gate:   access.NewGate(boards, lists, cards),
		owner:  testutil.CreateUser(t, db, "Owner"),
		member: testutil.CreateUser(t, db, "Member"),
		other:  testutil.CreateUser(t, db, "Other"),
	}
	f.board = &model.Board{Title: "Board", OwnerID: f.owner.ID}
	require.NoError(t, boards.Create(ctx, f.board))
	_, err := boards.AddMember(ctx, f.board.ID, f.member.ID)
	require.NoError(t, err)
	f.list = &model.List{BoardID: f.board.ID, Title: "Todo"}
	require.NoError(t, lists.Create(ctx, f.list))
	f.card = &model.Card{ListID: f.list.ID, Title: "Card", CreatedBy: f.owner.ID}
	require.NoError(t, cards.Create(ctx, f.card, nil))
	return f
}

func assertKind(t *testing.T, kind apperror.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.As(err).Kind)
}

func TestGate_Board(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, u := range []*model.User{f.owner, f.member} {
		board, err := f.gate.Board(ctx, u.ID, f.board.ID)
		require.NoError(t, err)
		assert.Equal(t, f.board.ID, board.ID)
	}

	_, err := f.gate.Board(ctx, f.other.ID, f.board.ID)
	assertKind(t, apperror.KindNotFound, err)

	_, err = f.gate.Board(ctx, f.owner.ID, uuid.New())
	assertKind(t, apperror.KindNotFound, err)
}

func TestGate_OwnedBoard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.gate.OwnedBoard(ctx, f.owner.ID, f.board.ID)
	assert.NoError(t, err)

	_, err = f.gate.OwnedBoard(ctx, f.member.ID, f.board.ID)
	assertKind(t, apperror.KindForbidden, err)

	_, err = f.gate.OwnedBoard(ctx, f.other.ID, f.board.ID)
	assertKind(t, apperror.KindNotFound, err)
}

func TestGate_ListAndCard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	list, board, err := f.gate.List(ctx, f.member.ID, f.list.ID)
	require.NoError(t, err)
	assert.Equal(t, f.list.ID, list.ID)
	assert.Equal(t, f.board.ID, board.ID)

	card, board, err := f.gate.Card(ctx, f.member.ID, f.card.ID)
	require.NoError(t, err)
	assert.Equal(t, f.card.ID, card.ID)
	assert.Equal(t, f.board.ID, board.ID)

	_, _, err = f.gate.List(ctx, f.other.ID, f.list.ID)
	assertKind(t, apperror.KindNotFound, err)
	assert.Equal(t, "List not found", apperror.As(err).Message)

	_, _, err = f.gate.Card(ctx, f.other.ID, f.card.ID)
	assertKind(t, apperror.KindNotFound, err)
	assert.Equal(t, "Card not found", apperror.As(err).Message)

	_, _, err = f.gate.Card(ctx, f.owner.ID, uuid.New())
	assertKind(t, apperror.KindNotFound, err)
}
