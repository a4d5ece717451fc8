package moderation

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/app"
	"github.com/oggyb/matchmaker/internal/server"
)

// ServiceName sits under server.AdminServicePrefix, so every call passes the admin interceptor.
const ServiceName = "matchmaker.moderation.v1.ModerationService"

type API interface {
	NextPending(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Purge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ServiceStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ViewUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		server.Method(ServiceName, "NextPending", API.NextPending),
		server.Method(ServiceName, "GetItem", API.GetItem),
		server.Method(ServiceName, "Decide", API.Decide),
		server.Method(ServiceName, "Stats", API.Stats),
		server.Method(ServiceName, "Purge", API.Purge),
		server.Method(ServiceName, "ServiceStats", API.ServiceStats),
		server.Method(ServiceName, "ViewUser", API.ViewUser),
		server.Method(ServiceName, "DeleteUser", API.DeleteUser),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matchmaker/moderation/v1/moderation.proto",
}

type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewModerationService(r.appCtx))
}
