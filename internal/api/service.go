package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "cryptocloud.v1.Storage"

const (
	MethodCreateFolder    = "CreateFolder"
	MethodGetEntry        = "GetEntry"
	MethodRename          = "Rename"
	MethodListChildren    = "ListChildren"
	MethodDelete          = "Delete"
	MethodRequestUpload   = "RequestUpload"
	MethodFinalizeUpload  = "FinalizeUpload"
	MethodRequestDownload = "RequestDownload"
	MethodUsage           = "Usage"
)

// FullMethod returns the gRPC method path, e.g. "/cryptocloud.v1.Storage/Usage".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// StorageServer is implemented by the control plane.
type StorageServer interface {
	CreateFolder(context.Context, *CreateFolderRequest) (*EntryResponse, error)
	GetEntry(context.Context, *GetEntryRequest) (*EntryResponse, error)
	Rename(context.Context, *RenameRequest) (*EntryResponse, error)
	ListChildren(context.Context, *ListChildrenRequest) (*ListChildrenResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	RequestUpload(context.Context, *RequestUploadRequest) (*RequestUploadResponse, error)
	FinalizeUpload(context.Context, *FinalizeUploadRequest) (*EntryResponse, error)
	RequestDownload(context.Context, *RequestDownloadRequest) (*RequestDownloadResponse, error)
	Usage(context.Context, *UsageRequest) (*UsageResponse, error)
}

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](method string, call func(StorageServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StorageServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StorageServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var StorageServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StorageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreateFolder, StorageServer.CreateFolder),
		unary(MethodGetEntry, StorageServer.GetEntry),
		unary(MethodRename, StorageServer.Rename),
		unary(MethodListChildren, StorageServer.ListChildren),
		unary(MethodDelete, StorageServer.Delete),
		unary(MethodRequestUpload, StorageServer.RequestUpload),
		unary(MethodFinalizeUpload, StorageServer.FinalizeUpload),
		unary(MethodRequestDownload, StorageServer.RequestDownload),
		unary(MethodUsage, StorageServer.Usage),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cryptocloud/api/service.go",
}

func RegisterStorageServer(s grpc.ServiceRegistrar, srv StorageServer) {
	s.RegisterService(&StorageServiceDesc, srv)
}

// StorageClient calls the storage service over cc using the CBOR codec.
type StorageClient struct {
	cc grpc.ClientConnInterface
}

func NewStorageClient(cc grpc.ClientConnInterface) *StorageClient {
	return &StorageClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorageClient) CreateFolder(ctx context.Context, in *CreateFolderRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[CreateFolderRequest, EntryResponse](ctx, c.cc, MethodCreateFolder, in, opts)
}

func (c *StorageClient) GetEntry(ctx context.Context, in *GetEntryRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[GetEntryRequest, EntryResponse](ctx, c.cc, MethodGetEntry, in, opts)
}

func (c *StorageClient) Rename(ctx context.Context, in *RenameRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[RenameRequest, EntryResponse](ctx, c.cc, MethodRename, in, opts)
}

func (c *StorageClient) ListChildren(ctx context.Context, in *ListChildrenRequest, opts ...grpc.CallOption) (*ListChildrenResponse, error) {
	return invoke[ListChildrenRequest, ListChildrenResponse](ctx, c.cc, MethodListChildren, in, opts)
}

func (c *StorageClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteRequest, DeleteResponse](ctx, c.cc, MethodDelete, in, opts)
}

func (c *StorageClient) RequestUpload(ctx context.Context, in *RequestUploadRequest, opts ...grpc.CallOption) (*RequestUploadResponse, error) {
	return invoke[RequestUploadRequest, RequestUploadResponse](ctx, c.cc, MethodRequestUpload, in, opts)
}

func (c *StorageClient) FinalizeUpload(ctx context.Context, in *FinalizeUploadRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[FinalizeUploadRequest, EntryResponse](ctx, c.cc, MethodFinalizeUpload, in, opts)
}

func (c *StorageClient) RequestDownload(ctx context.Context, in *RequestDownloadRequest, opts ...grpc.CallOption) (*RequestDownloadResponse, error) {
	return invoke[RequestDownloadRequest, RequestDownloadResponse](ctx, c.cc, MethodRequestDownload, in, opts)
}

func (c *StorageClient) Usage(ctx context.Context, in *UsageRequest, opts ...grpc.CallOption) (*UsageResponse, error) {
	return invoke[UsageRequest, UsageResponse](ctx, c.cc, MethodUsage, in, opts)
}
