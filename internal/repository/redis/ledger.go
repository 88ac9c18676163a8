// Package redis implements the slot ledger on Redis hashes.
//
// Each (doctor, day) pair is one hash keyed ledger:{doctor}:{day} whose
// fields are time-labels and whose values are owning appointment ids. A set
// ledger:{doctor}:days indexes the days that ever held a claim.
package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

const defaultPrefix = "ledger"

// claimScript sets the field only when absent and indexes the day in the
// same step.
var claimScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('SADD', KEYS[2], ARGV[3])
	return 1
end
return 0
`)

// releaseScript deletes the field only when the caller owns it.
var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call('HDEL', KEYS[1], ARGV[1])
end
return 0
`)

type slotLedger struct {
	client redis.UniversalClient
	prefix string
}

func NewSlotLedger(client redis.UniversalClient, prefix string) repository.SlotLedger {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &slotLedger{client: client, prefix: prefix}
}

func (l *slotLedger) dayKey(doctorID uuid.UUID, day string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, doctorID, day)
}

func (l *slotLedger) indexKey(doctorID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:days", l.prefix, doctorID)
}

func (l *slotLedger) Claim(ctx context.Context, claim model.SlotClaim) (bool, error) {
	keys := []string{l.dayKey(claim.DoctorID, claim.SlotDate), l.indexKey(claim.DoctorID)}
	n, err := claimScript.Run(ctx, l.client, keys, claim.SlotTime, claim.AppointmentID.String(), claim.SlotDate).Int()
	if err != nil {
		return false, fmt.Errorf("failed to claim slot: %w", err)
	}
	return n == 1, nil
}

func (l *slotLedger) Release(ctx context.Context, claim model.SlotClaim) (bool, error) {
	keys := []string{l.dayKey(claim.DoctorID, claim.SlotDate)}
	n, err := releaseScript.Run(ctx, l.client, keys, claim.SlotTime, claim.AppointmentID.String()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release slot: %w", err)
	}
	return n == 1, nil
}

func (l *slotLedger) IsClaimed(ctx context.Context, doctorID uuid.UUID, dayKey, timeLabel string) (bool, error) {
	held, err := l.client.HExists(ctx, l.dayKey(doctorID, dayKey), timeLabel).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read slot: %w", err)
	}
	return held, nil
}

func (l *slotLedger) Snapshot(ctx context.Context, doctorID uuid.UUID) (model.SlotsBooked, error) {
	days, err := l.client.SMembers(ctx, l.indexKey(doctorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger index: %w", err)
	}

	out := make(model.SlotsBooked)
	if len(days) == 0 {
		return out, nil
	}

	pipe := l.client.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(days))
	for _, day := range days {
		cmds[day] = pipe.HKeys(ctx, l.dayKey(doctorID, day))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	for day, cmd := range cmds {
		labels := cmd.Val()
		if len(labels) == 0 {
			continue
		}
		model.SortTimeLabels(labels)
		out[day] = labels
	}
	return out, nil
}
