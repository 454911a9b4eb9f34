package mtproto

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/metrics"
)

const (
	participantsPageSize = 200
	maxParticipants      = 10000
	dialogsLimit         = 100
	maxFloodWait         = 30 * time.Second
	retryAttempts        = 3
	supergroupIDOffset   = 1000000000000
)

var errParticipantsForbidden = errors.New("список участников чата недоступен")

// RawAPI — методы tg.Client, через которые читаются участники.
type RawAPI interface {
	MessagesGetFullChat(ctx context.Context, chatID int64) (*tg.MessagesChatFull, error)
	ChannelsGetParticipants(ctx context.Context, request *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error)
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
}

// APIProvider отдаёт raw API, дожидаясь подключения.
type APIProvider func(ctx context.Context) (RawAPI, error)

// Members перечисляет участников групп через пользовательскую сессию.
type Members struct {
	api APIProvider
	log zerolog.Logger

	mu     sync.Mutex
	hashes map[int64]int64
}

var _ domain.MemberLister = (*Members)(nil)

// NewMembers создаёт источник участников.
func NewMembers(api APIProvider, log zerolog.Logger) *Members {
	return &Members{api: api, log: log, hashes: make(map[int64]int64)}
}

// ListMembers возвращает всех известных участников чата с id в формате Bot API.
func (m *Members) ListMembers(ctx context.Context, chatID int64) ([]domain.Candidate, error) {
	var members []domain.Candidate
	op := func() error {
		api, err := m.api(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		start := time.Now()
		members, err = m.list(ctx, api, chatID)
		metrics.ObserveNetworkRequest("mtproto", "list_members", strconv.FormatInt(chatID, 10), start, err)
		return m.retryable(ctx, err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retryAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return members, nil
}

func (m *Members) list(ctx context.Context, api RawAPI, chatID int64) ([]domain.Candidate, error) {
	kind, id := peerOf(chatID)
	switch kind {
	case peerChat:
		return m.listChat(ctx, api, id)
	case peerChannel:
		return m.listChannel(ctx, api, id)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: %d", domain.ErrNotAGroupChat, chatID))
	}
}

func (m *Members) listChat(ctx context.Context, api RawAPI, id int64) ([]domain.Candidate, error) {
	resp, err := api.MessagesGetFullChat(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("messages.getFullChat: %w", err)
	}
	full, ok := resp.FullChat.(*tg.ChatFull)
	if !ok {
		return nil, backoff.Permanent(fmt.Errorf("неожиданный тип чата %T", resp.FullChat))
	}
	parts, ok := full.Participants.(*tg.ChatParticipants)
	if !ok {
		return nil, backoff.Permanent(errParticipantsForbidden)
	}

	users := usersByID(resp.Users)
	out := make([]domain.Candidate, 0, len(parts.Participants))
	for _, p := range parts.Participants {
		var (
			userID int64
			admin  bool
		)
		switch v := p.(type) {
		case *tg.ChatParticipant:
			userID = v.UserID
		case *tg.ChatParticipantAdmin:
			userID, admin = v.UserID, true
		case *tg.ChatParticipantCreator:
			userID, admin = v.UserID, true
		default:
			continue
		}
		if cand, ok := candidate(users, userID, admin); ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

func (m *Members) listChannel(ctx context.Context, api RawAPI, id int64) ([]domain.Candidate, error) {
	hash, err := m.accessHash(ctx, api, id)
	if err != nil {
		return nil, err
	}
	input := &tg.InputChannel{ChannelID: id, AccessHash: hash}

	var out []domain.Candidate
	for offset := 0; offset < maxParticipants; {
		resp, err := api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: input,
			Filter:  &tg.ChannelParticipantsRecent{},
			Offset:  offset,
			Limit:   participantsPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("channels.getParticipants: %w", err)
		}
		page, ok := resp.(*tg.ChannelsChannelParticipants)
		if !ok || len(page.Participants) == 0 {
			break
		}
		users := usersByID(page.Users)
		for _, p := range page.Participants {
			var (
				userID int64
				admin  bool
			)
			switch v := p.(type) {
			case *tg.ChannelParticipant:
				userID = v.UserID
			case *tg.ChannelParticipantSelf:
				userID = v.UserID
			case *tg.ChannelParticipantAdmin:
				userID, admin = v.UserID, true
			case *tg.ChannelParticipantCreator:
				userID, admin = v.UserID, true
			default:
				continue
			}
			if cand, ok := candidate(users, userID, admin); ok {
				out = append(out, cand)
			}
		}
		offset += len(page.Participants)
		if offset >= page.Count {
			break
		}
	}
	return out, nil
}

// accessHash ищет access hash супергруппы среди диалогов пользователя и кэширует его.
func (m *Members) accessHash(ctx context.Context, api RawAPI, channelID int64) (int64, error) {
	m.mu.Lock()
	hash, ok := m.hashes[channelID]
	m.mu.Unlock()
	if ok {
		return hash, nil
	}

	resp, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("messages.getDialogs: %w", err)
	}
	var chats []tg.ChatClass
	switch v := resp.(type) {
	case *tg.MessagesDialogs:
		chats = v.Chats
	case *tg.MessagesDialogsSlice:
		chats = v.Chats
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chats {
		if ch, ok := c.(*tg.Channel); ok {
			m.hashes[ch.ID] = ch.AccessHash
		}
	}
	hash, ok = m.hashes[channelID]
	if !ok {
		return 0, backoff.Permanent(fmt.Errorf("супергруппа %d не найдена среди диалогов MTProto-аккаунта", channelID))
	}
	return hash, nil
}

// retryable решает, стоит ли повторять запрос. FLOOD_WAIT выдерживается перед повтором.
func (m *Members) retryable(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		if d > maxFloodWait {
			return backoff.Permanent(err)
		}
		m.log.Warn().Dur("wait", d).Msg("MTProto FLOOD_WAIT, ждём")
		select {
		case <-time.After(d):
			return err
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		}
	}
	if rpcErr, ok := tgerr.As(err); ok && rpcErr.Code < 500 {
		return backoff.Permanent(err)
	}
	return err
}

type peerKind int

const (
	peerUnknown peerKind = iota
	peerChat
	peerChannel
)

// peerOf переводит id чата Bot API в id MTProto.
func peerOf(botAPIChatID int64) (peerKind, int64) {
	switch {
	case botAPIChatID <= -supergroupIDOffset:
		return peerChannel, -botAPIChatID - supergroupIDOffset
	case botAPIChatID < 0:
		return peerChat, -botAPIChatID
	default:
		return peerUnknown, botAPIChatID
	}
}

func usersByID(list []tg.UserClass) map[int64]*tg.User {
	out := make(map[int64]*tg.User, len(list))
	for _, u := range list {
		if user, ok := u.(*tg.User); ok {
			out[user.ID] = user
		}
	}
	return out
}

func candidate(users map[int64]*tg.User, userID int64, admin bool) (domain.Candidate, bool) {
	u, ok := users[userID]
	if !ok || u.Self {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.Bot,
		IsDeleted: u.Deleted,
		IsAdmin:   admin,
	}, true
}
