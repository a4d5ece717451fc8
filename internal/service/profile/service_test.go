package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/service/profile"
	"github.com/oggyb/matchmaker/internal/testutil"
)

func req(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestProfileWizardFlow(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	resp, err := svc.StartProfile(ctx, req(t, map[string]any{"external_id": "5001"}))
	require.NoError(t, err)
	assert.Equal(t, "name", resp.Fields["stage"].GetStringValue())
	assert.False(t, resp.Fields["editing"].GetBoolValue())

	inputs := []map[string]any{
		{"text": "Olga"},
		{"text": "29"},
		{"text": "female"},
		{"photo_ref": "tg-file-1"},
		{"text": "friendship"},
	}
	for _, in := range inputs {
		in["external_id"] = "5001"
		resp, err = svc.SubmitProfileInput(ctx, req(t, in))
		require.NoError(t, err)
		require.True(t, resp.Fields["accepted"].GetBoolValue(), "input %v", in)
	}

	resp, err = svc.SubmitProfileInput(ctx, req(t, map[string]any{"external_id": "5001", "text": "x"}))
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Fields["stage"].GetStringValue())
	p := resp.Fields["profile"].GetStructValue()
	assert.Equal(t, "Olga", p.Fields["name"].GetStringValue())
	assert.False(t, p.Fields["is_active"].GetBoolValue())

	resp, err = svc.GetProfile(ctx, req(t, map[string]any{"external_id": "5001"}))
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Fields["moderation_status"].GetStringValue())
	assert.Equal(t, "x", resp.Fields["profile"].GetStructValue().Fields["description"].GetStringValue())
}

func TestProfileWizard_RejectedInputKeepsStage(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	_, err := svc.StartProfile(ctx, req(t, map[string]any{"external_id": 5002}))
	require.NoError(t, err)

	resp, err := svc.SubmitProfileInput(ctx, req(t, map[string]any{"external_id": 5002, "text": "Z"}))
	require.NoError(t, err)
	assert.False(t, resp.Fields["accepted"].GetBoolValue())
	assert.Equal(t, "invalid_name", resp.Fields["problem"].GetStringValue())
	assert.Equal(t, "name", resp.Fields["stage"].GetStringValue())
}

func TestCancelProfile(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	_, err := svc.StartProfile(ctx, req(t, map[string]any{"external_id": "5003"}))
	require.NoError(t, err)
	_, err = svc.SubmitProfileInput(ctx, req(t, map[string]any{"external_id": "5003", "text": "Olga"}))
	require.NoError(t, err)

	resp, err := svc.CancelProfile(ctx, req(t, map[string]any{"external_id": "5003"}))
	require.NoError(t, err)
	assert.True(t, resp.Fields["cancelled"].GetBoolValue())

	_, err = svc.SubmitProfileInput(ctx, req(t, map[string]any{"external_id": "5003", "text": "29"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	// the draft never reached the stored profile
	got, err := svc.GetProfile(ctx, req(t, map[string]any{"external_id": "5003"}))
	require.NoError(t, err)
	assert.Empty(t, got.Fields["profile"].GetStructValue().Fields["name"].GetStringValue())
}

func TestProfile_Errors(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	_, err := svc.SubmitProfileInput(ctx, req(t, map[string]any{"external_id": "77", "text": "Olga"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = svc.GetProfile(ctx, req(t, map[string]any{"external_id": "77"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = svc.StartProfile(ctx, req(t, map[string]any{"external_id": "abc"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
