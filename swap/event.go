// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package swap

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/crosslock/rlp"
)

// EventSignature is the canonical signature of the event the protocol
// contract emits for both terminal remote transitions. The swap id is the
// only indexed parameter.
const EventSignature = "ClaimOrRevert(bytes32,address,address,uint256,uint256,address)"

var EventTopic = crypto.Keccak256Hash([]byte(EventSignature))

// Direction selects which terminal transition an event expectation proves.
type Direction uint8

const (
	_ Direction = iota
	Claim
	Revert
)

func (d Direction) String() string {
	switch d {
	case Claim:
		return "claim"
	case Revert:
		return "revert"
	default:
		return "invalid"
	}
}

var eventDataArguments = abi.Arguments{
	{Name: "from", Type: mustNewType("address")},
	{Name: "to", Type: mustNewType("address")},
	{Name: "amount", Type: mustNewType("uint256")},
	{Name: "tokenId", Type: mustNewType("uint256")},
	{Name: "token", Type: mustNewType("address")},
}

// ExpectedEvent is the remote log a lock state demands before it can be
// consumed in a given direction.
type ExpectedEvent struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// EventTemplate builds event expectations for an intent. The swap id is not
// known at intent time, so the template is curried: Build closes over the
// intent and direction and takes the id once the draft exists.
type EventTemplate struct {
	intent *Intent
	dir    Direction
}

func NewEventTemplate(intent *Intent, dir Direction) EventTemplate {
	return EventTemplate{intent: intent, dir: dir}
}

func (t EventTemplate) Build(swapID common.Hash) (*ExpectedEvent, error) {
	from, to := t.intent.Owner, t.intent.Recipient
	if t.dir == Revert {
		from, to = t.intent.Recipient, t.intent.Owner
	}
	data, err := eventDataArguments.Pack(
		from,
		to,
		t.intent.Amount,
		t.intent.TokenID,
		t.intent.TokenAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	return &ExpectedEvent{
		Address: t.intent.ProtocolAddress,
		Topics:  []common.Hash{EventTopic, swapID},
		Data:    data,
	}, nil
}

// Matches reports whether a proven receipt log satisfies this expectation.
func (e *ExpectedEvent) Matches(log *types.Log) bool {
	if log.Address != e.Address {
		return false
	}
	if len(log.Topics) != len(e.Topics) {
		return false
	}
	for i, topic := range e.Topics {
		if log.Topics[i] != topic {
			return false
		}
	}
	return bytes.Equal(log.Data, e.Data)
}

// Log renders the expectation as the log the protocol contract would emit.
func (e *ExpectedEvent) Log() *types.Log {
	return &types.Log{
		Address: e.Address,
		Topics:  append([]common.Hash{}, e.Topics...),
		Data:    append([]byte{}, e.Data...),
	}
}

// Encode serializes the expectation into the form stored inside a lock state.
func (e *ExpectedEvent) Encode() []byte {
	payload := rlp.EncodeBytes(e.Address.Bytes())
	var topics []byte
	for _, topic := range e.Topics {
		topics = append(topics, rlp.EncodeBytes(topic.Bytes())...)
	}
	payload = rlp.AppendList(payload, topics)
	payload = append(payload, rlp.EncodeBytes(e.Data)...)
	return rlp.AppendList(nil, payload)
}

// DecodeExpectedEvent is the inverse of Encode.
func DecodeExpectedEvent(data []byte) (*ExpectedEvent, error) {
	payload, rest, err := rlp.SplitList(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after event expectation", rlp.ErrCodec)
	}
	addr, payload, err := rlp.SplitString(payload)
	if err != nil {
		return nil, err
	}
	if len(addr) != common.AddressLength {
		return nil, fmt.Errorf("%w: event address of length %v", rlp.ErrCodec, len(addr))
	}
	e := &ExpectedEvent{Address: common.BytesToAddress(addr)}
	topics, payload, err := rlp.SplitList(payload)
	if err != nil {
		return nil, err
	}
	for len(topics) > 0 {
		var topic []byte
		if topic, topics, err = rlp.SplitString(topics); err != nil {
			return nil, err
		}
		if len(topic) != common.HashLength {
			return nil, fmt.Errorf("%w: event topic of length %v", rlp.ErrCodec, len(topic))
		}
		e.Topics = append(e.Topics, common.BytesToHash(topic))
	}
	if e.Data, _, err = rlp.SplitString(payload); err != nil {
		return nil, err
	}
	return e, nil
}

// SwapIDFromLog extracts the swap id topic from a ClaimOrRevert log.
func SwapIDFromLog(log *types.Log) (common.Hash, bool) {
	if len(log.Topics) != 2 || log.Topics[0] != EventTopic {
		return common.Hash{}, false
	}
	return log.Topics[1], true
}
