package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/contactbook-api/internal/domain"
)

// OtpRepo manages OTP code records and per-(user, purpose) issuance state.
//
// Both item kinds live in one table (PK: user_id, SK: sk):
//   - "STATE#<purpose>"        — issuance state: active code pointer, rate-limit window
//   - "OTP#<purpose>#<otp_id>" — one issued code
//
// Issue runs as a single TransactWriteItems with a compare-and-set on the
// state item, so concurrent Generate calls for the same pair cannot both pass
// the rate-limit check or leave two unused records behind. Verify-side writes
// are single conditional updates: marking a code used conditions on
// used = false (at most one concurrent verify wins), and recording a failed
// attempt conditions on the observed counter (no double-count).
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

func stateSK(purpose domain.OtpPurpose) string {
	return "STATE#" + string(purpose)
}

func recordSK(purpose domain.OtpPurpose, otpID string) string {
	return "OTP#" + string(purpose) + "#" + otpID
}

// GetState returns the issuance state for (userID, purpose), or nil if none
// exists yet. Uses a strongly consistent read — the state is the CAS anchor.
func (r *OtpRepo) GetState(ctx context.Context, userID string, purpose domain.OtpPurpose) (*domain.OtpIssueState, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey("user_id", userID, "sk", stateSK(purpose)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var st domain.OtpIssueState
	if err := attributevalue.UnmarshalMap(out.Item, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetRecord returns the code record, or nil if it no longer exists (deleted
// by supersession or removed by TTL).
func (r *OtpRepo) GetRecord(ctx context.Context, userID string, purpose domain.OtpPurpose, otpID string) (*domain.OtpRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey("user_id", userID, "sk", recordSK(purpose, otpID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec domain.OtpRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Issue atomically records a new code: it replaces the issuance state (CAS
// against prev), deletes the superseded unused record if any, and inserts rec.
// Either all three effects apply or none do. A lost CAS surfaces as
// domain.ErrConflict so the caller can retry or give up.
func (r *OtpRepo) Issue(ctx context.Context, rec *domain.OtpRecord, prev, next *domain.OtpIssueState) error {
	stateItem, err := attributevalue.MarshalMap(next)
	if err != nil {
		return fmt.Errorf("marshal otp state: %w", err)
	}
	stateItem["sk"] = &types.AttributeValueMemberS{Value: stateSK(next.Purpose)}

	recItem, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	recItem["sk"] = &types.AttributeValueMemberS{Value: recordSK(rec.Purpose, rec.OtpID)}

	statePut := &types.Put{
		TableName: aws.String(r.tableName),
		Item:      stateItem,
	}
	if prev == nil {
		statePut.ConditionExpression = aws.String("attribute_not_exists(sk)")
	} else {
		statePut.ConditionExpression = aws.String("issued = :issued AND active_otp_id = :active")
		statePut.ExpressionAttributeValues = map[string]types.AttributeValue{
			":issued": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", prev.Issued)},
			":active": &types.AttributeValueMemberS{Value: prev.ActiveOtpID},
		}
	}

	items := []types.TransactWriteItem{
		{Put: statePut},
	}
	if prev != nil && prev.ActiveOtpID != "" {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       compositeKey("user_id", rec.UserID, "sk", recordSK(rec.Purpose, prev.ActiveOtpID)),
			},
		})
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                recItem,
			ConditionExpression: aws.String("attribute_not_exists(sk)"),
		},
	})

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return fmt.Errorf("otp issuance raced with a concurrent request: %w", domain.ErrConflict)
	}
	return err
}

// MarkFailed persists an incremented failed-attempt counter and, when the
// limit was reached, the lockout deadline. Conditions on the observed counter
// so two racing verifies cannot both consume the same attempt.
func (r *OtpRepo) MarkFailed(ctx context.Context, rec *domain.OtpRecord, attempts int, lockoutUntil *time.Time) error {
	expr := "SET failed_attempts = :a"
	values := map[string]types.AttributeValue{
		":a":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
		":f":   &types.AttributeValueMemberBOOL{Value: false},
		":obs": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.FailedAttempts)},
	}
	if lockoutUntil != nil {
		expr += ", lockout_until = :l"
		lv, err := attributevalue.Marshal(*lockoutUntil)
		if err != nil {
			return fmt.Errorf("marshal lockout time: %w", err)
		}
		values[":l"] = lv
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("user_id", rec.UserID, "sk", recordSK(rec.Purpose, rec.OtpID)),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("used = :f AND failed_attempts = :obs"),
		ExpressionAttributeValues: values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("otp attempt raced with a concurrent request: %w", domain.ErrConflict)
	}
	return err
}

// Consume marks the record used and resets its failure bookkeeping. The
// used = false condition guarantees exactly one concurrent verify succeeds;
// the loser sees domain.ErrConflict.
func (r *OtpRepo) Consume(ctx context.Context, rec *domain.OtpRecord) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("user_id", rec.UserID, "sk", recordSK(rec.Purpose, rec.OtpID)),
		UpdateExpression:    aws.String("SET used = :t, failed_attempts = :z REMOVE lockout_until"),
		ConditionExpression: aws.String("used = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
			":z": &types.AttributeValueMemberN{Value: "0"},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("otp already consumed: %w", domain.ErrConflict)
	}
	return err
}
