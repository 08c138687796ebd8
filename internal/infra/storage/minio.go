package storage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Root é o prefixo onde ficam as pastas dos challengers.
	Root string
}

// MinioProvisioner cria a planilha do challenger copiando o template dentro
// do bucket.
type MinioProvisioner struct {
	client *minio.Client
	bucket string
	root   string
}

func NewMinioProvisioner(ctx context.Context, cfg MinioConfig) (*MinioProvisioner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cliente minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("erro ao verificar bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("erro ao criar bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("✅ Bucket %s criado", cfg.Bucket)
	}

	root := strings.Trim(cfg.Root, "/")
	if root == "" {
		root = "challengers"
	}
	return &MinioProvisioner{client: client, bucket: cfg.Bucket, root: root}, nil
}

func (p *MinioProvisioner) CreateFromTemplate(ctx context.Context, templateID, name, parentFolder string) (*entity.Document, error) {
	object := path.Join(p.root, SafeName(parentFolder), SafeName(name)+path.Ext(templateID))

	info, err := p.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: p.bucket, Object: object},
		minio.CopySrcOptions{Bucket: p.bucket, Object: templateID},
	)
	if err != nil {
		return nil, fmt.Errorf("erro ao copiar template %s: %w", templateID, err)
	}
	log.Printf("📄 Planilha do challenger criada: %s", info.Key)

	return &entity.Document{
		ID:     info.Key,
		Name:   name,
		Folder: parentFolder,
		URL:    p.objectURL(info.Key),
	}, nil
}

// Ping confere se o bucket está acessível.
func (p *MinioProvisioner) Ping(ctx context.Context) error {
	_, err := p.client.BucketExists(ctx, p.bucket)
	return err
}

func (p *MinioProvisioner) objectURL(object string) string {
	u := url.URL{
		Scheme: p.client.EndpointURL().Scheme,
		Host:   p.client.EndpointURL().Host,
		Path:   "/" + p.bucket + "/" + object,
	}
	return u.String()
}
