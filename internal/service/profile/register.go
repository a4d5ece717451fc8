package profile

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/app"
	"github.com/oggyb/matchmaker/internal/server"
)

const ServiceName = "matchmaker.profile.v1.ProfileService"

type API interface {
	StartProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitProfileInput(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		server.Method(ServiceName, "StartProfile", API.StartProfile),
		server.Method(ServiceName, "SubmitProfileInput", API.SubmitProfileInput),
		server.Method(ServiceName, "GetProfile", API.GetProfile),
		server.Method(ServiceName, "CancelProfile", API.CancelProfile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matchmaker/profile/v1/profile.proto",
}

type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewProfileService(r.appCtx))
}
