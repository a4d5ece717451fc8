package explore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/app"
	"github.com/oggyb/matchmaker/internal/server"
)

const ServiceName = "matchmaker.explore.v1.ExploreService"

// API is the method set served under ServiceName.
type API interface {
	NextCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutDecision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLikedYou(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNewLikedYou(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMatches(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		server.Method(ServiceName, "NextCandidate", API.NextCandidate),
		server.Method(ServiceName, "PutDecision", API.PutDecision),
		server.Method(ServiceName, "ListLikedYou", API.ListLikedYou),
		server.Method(ServiceName, "ListNewLikedYou", API.ListNewLikedYou),
		server.Method(ServiceName, "ListMatches", API.ListMatches),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matchmaker/explore/v1/explore.proto",
}

// Registrar ties the Explore service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Explore service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Explore service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewExploreService(r.appCtx))
}
