package database

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/storage"
	"github.com/sirupsen/logrus"
)

const (
	metadataDir = "metadata"
	originalDir = "original"
	resultsDir  = "results"
)

func NewConversionRepository(storage storage.FileStorage) ConversionRepository {
	return &fileConversionRepository{storage: storage}
}

func (r *fileConversionRepository) Save(conversion *entity.Conversion) error {
	data, err := json.Marshal(conversion)
	if err != nil {
		return err
	}

	return r.storage.Save(r.metadataPath(conversion.ID), bytes.NewReader(data))
}

func (r *fileConversionRepository) FindByID(id string) (*entity.Conversion, error) {
	reader, err := r.storage.Get(r.metadataPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entity.ErrConversionNotFound
		}
		return nil, err
	}
	defer reader.Close()

	var conversion entity.Conversion
	if err := json.NewDecoder(reader).Decode(&conversion); err != nil {
		return nil, err
	}

	return &conversion, nil
}

func (r *fileConversionRepository) List() ([]*entity.Conversion, error) {
	names, err := r.storage.List(metadataDir)
	if err != nil {
		return nil, err
	}

	conversions := make([]*entity.Conversion, 0, len(names))
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		c, err := r.FindByID(strings.TrimSuffix(name, ".json"))
		if err != nil {
			logrus.WithError(err).WithField("file", name).Warn("skipping unreadable conversion metadata")
			continue
		}
		conversions = append(conversions, c)
	}
	return conversions, nil
}

// Delete removes metadata, original and result. Missing pieces are fine.
func (r *fileConversionRepository) Delete(id string) error {
	conversion, err := r.FindByID(id)
	if err != nil {
		return err
	}

	paths := []string{
		originalKey(id, conversion.OriginalName),
		filepath.Join(resultsDir, id+".jpg"),
		r.metadataPath(id),
	}
	for _, p := range paths {
		if err := r.storage.Delete(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (r *fileConversionRepository) SaveOriginal(id, name string, file io.Reader) error {
	return r.storage.Save(originalKey(id, name), file)
}

func (r *fileConversionRepository) OriginalPath(id, name string) string {
	return r.storage.Path(originalKey(id, name))
}

func (r *fileConversionRepository) ResultPath(id string) string {
	return r.storage.Path(filepath.Join(resultsDir, id+".jpg"))
}

func (r *fileConversionRepository) OpenResult(id string) (io.ReadCloser, error) {
	reader, err := r.storage.Get(filepath.Join(resultsDir, id+".jpg"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entity.ErrResultNotReady
		}
		return nil, err
	}
	return reader, nil
}

// originalKey keeps the upload's extension so decoders and logs see it.
func originalKey(id, name string) string {
	return filepath.Join(originalDir, id+strings.ToLower(filepath.Ext(name)))
}

func (r *fileConversionRepository) metadataPath(id string) string {
	return filepath.Join(metadataDir, id+".json")
}
