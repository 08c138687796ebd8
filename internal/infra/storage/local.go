package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// LocalProvisioner copia o template para uma pasta por challenger no disco.
// Usado quando não há MinIO configurado.
type LocalProvisioner struct {
	Root string
}

func NewLocalProvisioner(root string) *LocalProvisioner {
	return &LocalProvisioner{Root: root}
}

func (p *LocalProvisioner) CreateFromTemplate(_ context.Context, templateID, name, parentFolder string) (*entity.Document, error) {
	src, err := os.Open(templateID)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir template %s: %w", templateID, err)
	}
	defer src.Close()

	dir := filepath.Join(p.Root, SafeName(parentFolder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("erro ao criar pasta %s: %w", dir, err)
	}

	target := filepath.Join(dir, SafeName(name)+filepath.Ext(templateID))
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, fmt.Errorf("erro ao copiar template: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, err
	}
	log.Printf("📄 Planilha do challenger criada: %s", target)

	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	return &entity.Document{
		ID:     target,
		Name:   name,
		Folder: parentFolder,
		URL:    "file://" + filepath.ToSlash(abs),
	}, nil
}

// SafeName troca separadores de caminho: a data do desafio vem como
// MM/DD/YYYY e não pode virar subpasta.
func SafeName(name string) string {
	r := strings.NewReplacer("/", "-", `\`, "-", "..", "-")
	return strings.TrimSpace(r.Replace(name))
}
