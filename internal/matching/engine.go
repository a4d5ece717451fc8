package matching

import (
	"context"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/repository"
)

// LikeResult is the outcome of Engine.Like.
type LikeResult struct {
	Like *db.Like
	// Created is false when the like already existed and nothing was written.
	Created bool
	// Matched is true only on the call that turned the pair mutual.
	// A repeated like on a matched pair reports Like.IsMutual but not Matched.
	Matched bool
}

// Engine records viewer actions. It performs no notification I/O:
// callers decide what to announce from the returned result.
type Engine struct {
	likes *repository.LikeRepository
	skips *repository.SkipRepository
}

func NewEngine(likes *repository.LikeRepository, skips *repository.SkipRepository) *Engine {
	return &Engine{likes: likes, skips: skips}
}

// Like records from -> to. Safe to call repeatedly and concurrently with the reverse like.
func (e *Engine) Like(ctx context.Context, from, to uint64) (LikeResult, error) {
	if err := validatePair(from, to); err != nil {
		return LikeResult{}, err
	}
	like, created, err := e.likes.Add(ctx, from, to)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{
		Like:    like,
		Created: created,
		Matched: created && like.IsMutual,
	}, nil
}

// Skip records that viewer passed on target. Returns false when it was already skipped.
func (e *Engine) Skip(ctx context.Context, viewer, target uint64) (bool, error) {
	if err := validatePair(viewer, target); err != nil {
		return false, err
	}
	return e.skips.Add(ctx, viewer, target)
}

func validatePair(from, to uint64) error {
	if from == 0 || to == 0 {
		return svcErr.Validation("user ids are required")
	}
	if from == to {
		return svcErr.Validation("cannot act on yourself")
	}
	return nil
}
