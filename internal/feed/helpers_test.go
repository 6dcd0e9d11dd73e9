package feed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stacklok/photofeed/internal/backend"
)

var (
	t1 = time.Date(2024, 9, 21, 12, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 9, 22, 12, 0, 0, 0, time.UTC)
)

// pngBytes returns a small valid PNG image
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// oversizedPNG returns a PNG whose header declares 100000x100000 pixels but
// carries only the pixel data of a tiny image
func oversizedPNG(t *testing.T) []byte {
	t.Helper()
	data := pngBytes(t)
	// IHDR data starts after the signature, chunk length and chunk type
	binary.BigEndian.PutUint32(data[16:20], 100_000)
	binary.BigEndian.PutUint32(data[20:24], 100_000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func refFor(id string) backend.AssetRef {
	return backend.AssetRef{Name: id + ".png", URL: "https://files.example/" + id + ".png"}
}

// row builds a query row; withPhoto controls whether it carries a file reference
func row(id string, createdAt time.Time, withPhoto bool) backend.RawRecord {
	data := fmt.Sprintf(`{"objectId":%q,"caption":"caption %s","username":"user-%s"`, id, id, id)
	if withPhoto {
		ref := refFor(id)
		data += fmt.Sprintf(`,"photo":{"__type":"File","name":%q,"url":%q}`, ref.Name, ref.URL)
	}
	data += "}"
	return backend.RawRecord{ID: id, CreatedAt: createdAt, Data: []byte(data)}
}

func postIDs(result *Result) []string {
	ids := make([]string, 0, len(result.Posts))
	for _, p := range result.Posts {
		ids = append(ids, p.ID)
	}
	return ids
}
