package mongo

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// Aggregate компилирует spec в конвейер агрегации и декодирует результат в out.
func (m *Mongo) Aggregate(ctx context.Context, spec storage.JoinSpec, out any) error {
	const op = "storage/mongo/Aggregate"

	coll, err := m.collection(spec.From)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipeline, err := compile(spec.Stages)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}

	return nil
}

// compile переводит шаги storage.JoinSpec в стадии MongoDB:
//   - MatchStage    -> $match (равенство или $in);
//   - LookupStage   -> $lookup (localField/foreignField + вложенный pipeline);
//   - TallyStage    -> $count: "n" (только во вложенном pipeline);
//   - CountStage    -> $addFields {as: {$ifNull: [{$first: "$field.n"}, 0]}};
//   - ContainsStage -> $addFields {as: {$in: [value, "$field"]}};
//   - FirstStage    -> $addFields {field: {$first: "$field"}};
//   - ProjectStage  -> $project (только перечисленные поля, _id исключается, если не указан).
func compile(stages []storage.Stage) (mongodriver.Pipeline, error) {
	pipeline := make(mongodriver.Pipeline, 0, len(stages))

	for _, st := range stages {
		switch s := st.(type) {
		case storage.MatchStage:
			var cond any = s.Value
			if s.Op == storage.OpIn {
				cond = bson.D{{Key: "$in", Value: s.Value}}
			}

			pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: s.Field, Value: cond}}}})

		case storage.LookupStage:
			lookup := bson.D{
				{Key: "from", Value: string(s.From)},
				{Key: "localField", Value: s.LocalField},
				{Key: "foreignField", Value: s.ForeignField},
				{Key: "as", Value: s.As},
			}

			if len(s.Pipeline) > 0 {
				nested, err := compile(s.Pipeline)
				if err != nil {
					return nil, err
				}

				lookup = append(lookup, bson.E{Key: "pipeline", Value: nested})
			}

			pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: lookup}})

		case storage.TallyStage:
			pipeline = append(pipeline, bson.D{{Key: "$count", Value: storage.TallyField}})

		case storage.CountStage:
			first := bson.D{{Key: "$first", Value: "$" + s.Field + "." + storage.TallyField}}
			pipeline = append(pipeline, addFields(s.As, bson.D{{Key: "$ifNull", Value: bson.A{first, 0}}}))

		case storage.ContainsStage:
			pipeline = append(pipeline, addFields(s.As, bson.D{{Key: "$in", Value: bson.A{s.Value, "$" + s.Field}}}))

		case storage.FirstStage:
			pipeline = append(pipeline, addFields(s.Field, bson.D{{Key: "$first", Value: "$" + s.Field}}))

		case storage.ProjectStage:
			proj := make(bson.D, 0, len(s.Fields)+1)
			hasID := false

			for _, f := range s.Fields {
				if f == storage.FieldID {
					hasID = true
				}

				proj = append(proj, bson.E{Key: f, Value: 1})
			}

			if !hasID {
				proj = append(proj, bson.E{Key: storage.FieldID, Value: 0})
			}

			pipeline = append(pipeline, bson.D{{Key: "$project", Value: proj}})

		default:
			return nil, fmt.Errorf("%w: unsupported stage %T", storage.ErrInvalidJoinSpec, st)
		}
	}

	return pipeline, nil
}

func addFields(field string, expr bson.D) bson.D {
	return bson.D{{Key: "$addFields", Value: bson.D{{Key: field, Value: expr}}}}
}
