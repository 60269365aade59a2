package database

import (
	"io"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/storage"
)

type ConversionRepository interface {
	Save(conversion *entity.Conversion) error
	FindByID(id string) (*entity.Conversion, error)
	List() ([]*entity.Conversion, error)
	Delete(id string) error
	SaveOriginal(id, name string, file io.Reader) error
	OriginalPath(id, name string) string
	ResultPath(id string) string
	OpenResult(id string) (io.ReadCloser, error)
}

type fileConversionRepository struct {
	storage storage.FileStorage
}
