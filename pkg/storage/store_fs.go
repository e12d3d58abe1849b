package storage

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/mod/sumdb"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"ridengateway/pkg/utils/fileutil"
)

type FsClient struct {
	storePath string
}

var _ Storage = (*FsClient)(nil)

func NewFsClient(sg StoreGroup) *FsClient {
	fc := &FsClient{}
	fc.Init(sg)
	return fc
}

func (fc *FsClient) Init(sg StoreGroup) {
	var dirs []string
	switch sg {
	case StoreGroupGateway:
		dirs = []string{
			Config,
			Firmware,
		}
	default:
		klog.Fatalf("Unsupported store group %d", sg)
	}

	fc.storePath = filepath.Join(storePath, StoreGroupToString[sg])

	for _, m := range dirs {
		p := filepath.Join(fc.storePath, m)

		_, err := os.Stat(p)
		if os.IsNotExist(err) {
			absPath, _ := filepath.Abs(p)
			klog.V(2).InfoS("Created", "path", absPath)
			if err = os.MkdirAll(p, 0711); err != nil {
				klog.Fatal(err)
			}
		} else if err != nil {
			klog.Fatal(err)
		}
	}
}

func (fc *FsClient) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(fc.storePath, key))
	if err != nil {
		klog.V(2).InfoS("Failed to read", "err", err)
		return nil, err
	}
	return data, nil
}

func (fc *FsClient) List(key string) ([]*FileInfo, error) {
	var files []*FileInfo
	err := filepath.Walk(filepath.Join(fc.storePath, key), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, &FileInfo{
				Path:    path,
				ModTime: info.ModTime(),
			})
		}
		return nil
	})
	if err != nil {
		klog.V(2).InfoS("Failed to list", "err", err)
		return nil, err
	}
	return files, nil
}

// Write replaces the file under an exclusive region lock so that a
// concurrent writer sees a conflict instead of a torn record.
func (fc *FsClient) Write(key string, data []byte) error {
	f, err := os.OpenFile(filepath.Join(fc.storePath, key), os.O_CREATE|os.O_RDWR, 0640)
	if err != nil {
		if isEphemeralError(err) {
			klog.V(2).InfoS("Failed to open file", "err", err)
			return sumdb.ErrWriteConflict
		}
		return err
	}
	defer f.Close()

	lock, err := fileutil.NewLock(f)
	if err != nil {
		klog.V(2).InfoS("Failed to lock", "err", err)
		return sumdb.ErrWriteConflict
	}
	defer lock.Release()

	if err = f.Truncate(0); err != nil {
		klog.V(2).InfoS("Failed to truncate", "err", err)
		return err
	}
	if _, err = f.Seek(0, 0); err != nil {
		klog.V(2).InfoS("Failed to seek", "err", err)
		return err
	}
	if _, err = f.Write(data); err != nil {
		klog.V(2).InfoS("Failed to write", "err", err)
		return err
	}
	return f.Sync()
}

func (fc *FsClient) Delete(key string) error {
	c, cancel := context.WithCancel(context.Background())
	wait.UntilWithContext(c, func(ctx context.Context) {
		if err := os.Remove(filepath.Join(fc.storePath, key)); !isEphemeralError(err) {
			if err != nil && !os.IsNotExist(err) {
				klog.V(5).InfoS("Failed to remove file", "err", err)
			}
			cancel()
		}
	}, 0)
	return nil
}
