package product

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ProductServiceName is the fully qualified gRPC service name.
	ProductServiceName = "retail.catalog.v1.ProductService"
	// CreateProductMethod is the full method path clients invoke.
	CreateProductMethod = "/" + ProductServiceName + "/CreateProduct"
)

// ProductServer is the handler contract for the catalog gRPC service.
type ProductServer interface {
	CreateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ProductServiceDesc registers the service with google.protobuf.Struct request and response messages.
var ProductServiceDesc = grpc.ServiceDesc{
	ServiceName: ProductServiceName,
	HandlerType: (*ProductServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateProduct", Handler: createProductHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "retail/catalog/v1/product.proto",
}

func createProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductServer).CreateProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateProductMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductServer).CreateProduct(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCServer adapts the product service to the gRPC transport.
type GRPCServer struct {
	svc  Service
	logg *logger.Logger
}

func NewGRPCServer(svc Service, logg *logger.Logger) *GRPCServer {
	return &GRPCServer{svc: svc, logg: logg}
}

// Register attaches the catalog service to s.
func (g *GRPCServer) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ProductServiceDesc, g)
}

func (g *GRPCServer) CreateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := createInputFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	product, err := g.svc.CreateProduct(ctx, nil, input)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"id":            product.ID.String(),
		"sku":           product.SKU,
		"name":          product.Name,
		"price":         product.Price.String(),
		"current_price": product.CurrentPrice.String(),
	})
}

func createInputFromStruct(req *structpb.Struct) (CreateProductInput, error) {
	var input CreateProductInput
	if req == nil {
		return input, fmt.Errorf("request body is required")
	}
	fields := req.GetFields()
	input.SKU = stringField(fields, "sku")
	input.Name = stringField(fields, "name")
	input.Description = optionalString(fields, "description")
	input.Brand = optionalString(fields, "brand")

	price, ok, err := decimalField(fields, "price")
	if err != nil {
		return input, err
	}
	if !ok {
		return input, fmt.Errorf("price is required")
	}
	input.Price = price

	discount, ok, err := decimalField(fields, "discount_percentage")
	if err != nil {
		return input, err
	}
	if ok {
		input.DiscountPercentage = &discount
	}

	if raw := stringField(fields, "category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, fmt.Errorf("category_id must be a uuid")
		}
		input.CategoryID = &id
	}
	return input, nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func optionalString(fields map[string]*structpb.Value, key string) *string {
	value := stringField(fields, key)
	if value == "" {
		return nil
	}
	return &value
}

// decimalField accepts numbers and numeric strings.
func decimalField(fields map[string]*structpb.Value, key string) (decimal.Decimal, bool, error) {
	v, ok := fields[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), true, nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("%s must be numeric", key)
		}
		return d, true, nil
	case *structpb.Value_NullValue:
		return decimal.Zero, false, nil
	default:
		return decimal.Zero, false, fmt.Errorf("%s must be numeric", key)
	}
}

func toStatus(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return status.Error(codes.Internal, "internal error")
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		return status.Error(codes.InvalidArgument, typed.Message())
	case pkgerrors.CodeConflict:
		return status.Error(codes.AlreadyExists, typed.Message())
	case pkgerrors.CodeNotFound:
		return status.Error(codes.NotFound, typed.Message())
	default:
		return status.Error(codes.Internal, pkgerrors.MetadataFor(typed.Code()).PublicMessage)
	}
}

// UnaryLoggingInterceptor tags each call with a request id and logs its outcome.
func UnaryLoggingInterceptor(logg *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = logg.WithRequestID(ctx, uuid.NewString())
		ctx = logg.WithField(ctx, "grpc_method", info.FullMethod)

		resp, err := handler(ctx, req)

		ctx = logg.WithFields(ctx, map[string]any{
			"grpc_code":   status.Code(err).String(),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
		})
		if err != nil && status.Code(err) == codes.Internal {
			logg.Error(ctx, "grpc.error", err)
		} else {
			logg.Info(ctx, "grpc.complete")
		}
		return resp, err
	}
}
