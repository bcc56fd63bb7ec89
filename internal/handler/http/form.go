package http

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/service"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

// Form field names of the product form.
const (
	fieldTitle       = "title"
	fieldSKU         = "sku"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldStock       = "stock"
	fieldVariants    = "variants"
	fieldFiles       = "file_path"
	fieldPriceID     = "product_price_id"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before file parts spill to disk.
const multipartMemory = 8 << 20

// productForm is a decoded product form. Close releases the uploaded files.
type productForm struct {
	input   service.ProductInput
	priceID string
	files   []multipart.File
	form    *multipart.Form
}

func (f *productForm) Close() {
	for _, file := range f.files {
		_ = file.Close()
	}
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}

// parseProductForm decodes a multipart or urlencoded product form. Values
// that cannot be decoded are reported as field errors on the input, so they
// are returned together with the validation errors. Only a body that cannot
// be read at all is an error.
func parseProductForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*productForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == contentTypeMultipart {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, apperrors.InvalidInput("malformed form: " + err.Error())
	}

	f := &productForm{form: r.MultipartForm}
	errs := apperrors.FieldErrors{}

	in := &f.input
	in.Title = r.PostFormValue(fieldTitle)
	in.SKU = r.PostFormValue(fieldSKU)
	in.Description = r.PostFormValue(fieldDescription)
	f.priceID = strings.TrimSpace(r.PostFormValue(fieldPriceID))

	if raw := strings.TrimSpace(r.PostFormValue(fieldPrice)); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs.Add(fieldPrice, "must be a number")
		} else {
			in.Price = &d
		}
	}
	if raw := strings.TrimSpace(r.PostFormValue(fieldStock)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs.Add(fieldStock, "must be a whole number")
		} else {
			in.Stock = &n
		}
	}

	groups, err := domain.ParseOptionGroups(r.PostFormValue(fieldVariants))
	if err != nil {
		errs.Add(fieldVariants, "must be a JSON list of {option, tags} groups")
	}
	in.Groups = groups

	if r.MultipartForm != nil {
		for i, fh := range r.MultipartForm.File[fieldFiles] {
			upload, file, err := openUpload(fh)
			if err != nil {
				errs.Add(fmt.Sprintf("%s[%d]", fieldFiles, i), "could not be read")
				continue
			}
			f.files = append(f.files, file)
			in.Images = append(in.Images, upload)
		}
	}

	in.FormErrors = errs
	return f, nil
}

// openUpload opens a file part. Parts without a specific content type are
// sniffed.
func openUpload(fh *multipart.FileHeader) (service.ImageUpload, multipart.File, error) {
	file, err := fh.Open()
	if err != nil {
		return service.ImageUpload{}, nil, err
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, 512)
		n, err := io.ReadFull(file, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			_ = file.Close()
			return service.ImageUpload{}, nil, err
		}
		contentType = http.DetectContentType(head[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			_ = file.Close()
			return service.ImageUpload{}, nil, err
		}
	}

	return service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Data:        file,
	}, file, nil
}
