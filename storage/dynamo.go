package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	dynamoMaxTransactItems = 100
	dynamoMaxBatchGetKeys  = 100
)

type recordItem struct {
	PK      string `dynamodbav:"PK"`
	Kind    string `dynamodbav:"Kind"`
	PollID  uint32 `dynamodbav:"PollID"`
	Owner   string `dynamodbav:"Owner"`
	Deposit uint64 `dynamodbav:"Deposit"`
	Version uint64 `dynamodbav:"Version"`
	Data    []byte `dynamodbav:"Data"`
}

func itemFromRecord(r *Record, version uint64) recordItem {
	return recordItem{
		PK:      r.Address.String(),
		Kind:    string(r.Kind),
		PollID:  r.PollID,
		Owner:   r.Owner,
		Deposit: r.Deposit,
		Version: version,
		Data:    r.Data,
	}
}

func (it recordItem) toRecord() (*Record, error) {
	addr, err := identity.ParseAddress(it.PK)
	if err != nil {
		return nil, err
	}
	return &Record{
		Address: addr,
		Kind:    Kind(it.Kind),
		PollID:  it.PollID,
		Owner:   it.Owner,
		Deposit: it.Deposit,
		Version: it.Version,
		Data:    it.Data,
	}, nil
}

func pkKey(addr identity.Address) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: addr.String()},
	}
}

// DynamoRecordStore keeps every record in one table keyed by PK (hex address).
// Commit maps a batch onto TransactWriteItems.
type DynamoRecordStore struct {
	Client    *dynamodb.Client
	TableName string
}

func (s *DynamoRecordStore) Get(ctx context.Context, addr identity.Address) (*Record, error) {
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.TableName,
		Key:            pkKey(addr),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		logging.Log.Errorf("STORE: GetItem for %s failed: %v", addr, err)
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrRecordNotFound
	}

	var item recordItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		logging.Log.Errorf("STORE: failed to unmarshal record %s: %v", addr, err)
		return nil, err
	}
	return item.toRecord()
}

func (s *DynamoRecordStore) GetMany(ctx context.Context, addrs []identity.Address) (map[identity.Address]*Record, error) {
	out := make(map[identity.Address]*Record, len(addrs))

	seen := make(map[identity.Address]struct{}, len(addrs))
	keys := make([]map[string]types.AttributeValue, 0, len(addrs))
	for _, addr := range addrs {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		keys = append(keys, pkKey(addr))
	}

	for i := 0; i < len(keys); i += dynamoMaxBatchGetKeys {
		end := i + dynamoMaxBatchGetKeys
		if end > len(keys) {
			end = len(keys)
		}

		request := map[string]types.KeysAndAttributes{
			s.TableName: {Keys: keys[i:end], ConsistentRead: aws.Bool(true)},
		}
		for len(request) > 0 {
			res, err := s.Client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				logging.Log.Errorf("STORE: BatchGetItem failed: %v", err)
				return nil, err
			}

			var items []recordItem
			if err := attributevalue.UnmarshalListOfMaps(res.Responses[s.TableName], &items); err != nil {
				logging.Log.Errorf("STORE: failed to unmarshal batch: %v", err)
				return nil, err
			}
			for _, item := range items {
				r, err := item.toRecord()
				if err != nil {
					return nil, err
				}
				out[r.Address] = r
			}
			request = res.UnprocessedKeys
		}
	}
	return out, nil
}

func (s *DynamoRecordStore) ListByPoll(ctx context.Context, kind Kind, pollID uint32) ([]*Record, error) {
	var records []*Record
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		out, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &s.TableName,
			ExclusiveStartKey: lastEvaluatedKey,
			FilterExpression:  aws.String("#k = :kind AND #p = :poll"),
			ExpressionAttributeNames: map[string]string{
				"#k": "Kind",
				"#p": "PollID",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":kind": &types.AttributeValueMemberS{Value: string(kind)},
				":poll": &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(pollID), 10)},
			},
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			logging.Log.Errorf("STORE: scan for %s of poll %d failed: %v", kind, pollID, err)
			return nil, err
		}

		var items []recordItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			logging.Log.Errorf("STORE: failed to unmarshal scan page: %v", err)
			return nil, err
		}
		for _, item := range items {
			r, err := item.toRecord()
			if err != nil {
				return nil, err
			}
			records = append(records, r)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}
	return records, nil
}

func (s *DynamoRecordStore) Commit(ctx context.Context, batch *Batch) error {
	if len(batch.Ops) > dynamoMaxTransactItems {
		return fmt.Errorf("%w: %d operations", ErrBatchTooLarge, len(batch.Ops))
	}

	items := make([]types.TransactWriteItem, 0, len(batch.Ops))
	for _, op := range batch.Ops {
		item, err := s.transactItem(op)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	_, err := s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return nil
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) != "ConditionalCheckFailed" || i >= len(batch.Ops) {
				continue
			}
			op := batch.Ops[i]
			logging.Log.Warnf("STORE: %s on %s failed its condition", op.Type, op.Record.Address)
			if op.Type == OpCreate {
				return fmt.Errorf("%w: %s", ErrRecordExists, op.Record.Address)
			}
			return fmt.Errorf("%w: %s", ErrConflict, op.Record.Address)
		}
		logging.Log.Errorf("STORE: transaction canceled: %v", err)
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}

	logging.Log.Errorf("STORE: TransactWriteItems failed: %v", err)
	return err
}

func (s *DynamoRecordStore) transactItem(op Op) (types.TransactWriteItem, error) {
	r := op.Record
	expected := map[string]types.AttributeValue{
		":expected": &types.AttributeValueMemberN{Value: strconv.FormatUint(r.Version, 10)},
	}
	versionName := map[string]string{"#v": "Version"}

	switch op.Type {
	case OpCreate:
		item, err := attributevalue.MarshalMap(itemFromRecord(r, 0))
		if err != nil {
			logging.Log.Errorf("STORE: failed to marshal record %s: %v", r.Address, err)
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Put: &types.Put{
			TableName:           &s.TableName,
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		}}, nil

	case OpUpdate:
		item, err := attributevalue.MarshalMap(itemFromRecord(r, r.Version+1))
		if err != nil {
			logging.Log.Errorf("STORE: failed to marshal record %s: %v", r.Address, err)
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                 &s.TableName,
			Item:                      item,
			ConditionExpression:       aws.String("#v = :expected"),
			ExpressionAttributeNames:  versionName,
			ExpressionAttributeValues: expected,
		}}, nil

	case OpDelete:
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 &s.TableName,
			Key:                       pkKey(r.Address),
			ConditionExpression:       aws.String("#v = :expected"),
			ExpressionAttributeNames:  versionName,
			ExpressionAttributeValues: expected,
		}}, nil
	}
	return types.TransactWriteItem{}, fmt.Errorf("unknown op type %d", op.Type)
}
