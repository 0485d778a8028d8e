package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/diskspace"
	"github.com/blogdesk/mdxmanager/internal/validation"
)

// DefaultRemotePath proposes posts/<basename> as the key for a local file.
func DefaultRemotePath(localPath string) string {
	return storage.Join(constants.DefaultRemoteFolder, filepath.Base(localPath))
}

// pathOf normalizes a key the way the tree builder does.
func pathOf(key string) string {
	return storage.Join(strings.Split(key, "/")...)
}

func (c *Controller) isFolder(key string) bool {
	_, ok := c.forest.Folder(pathOf(key))
	return ok
}

// --- refresh ---

type listResult struct {
	op
	objects []storage.Object
	err     error
}

// Refresh lists the bucket and rebuilds the tree.
func (c *Controller) Refresh() {
	o := c.begin("refresh", "", "Loading files...")
	c.dispatcher.Go(func() Result {
		objs, err := c.backend.List(c.ctx)
		return &listResult{op: o, objects: objs, err: err}
	})
}

func (r *listResult) Apply(c *Controller) {
	if r.err != nil {
		c.finish(r.op, r.err, "Failed to load files", "Load Error", "Failed to load files")
		return
	}
	c.objects = r.objects
	c.rebuild()
	c.finish(r.op, nil, fmt.Sprintf("Loaded %d files", len(c.forest.Files())), "", "")
}

// --- upload / update ---

type uploadResult struct {
	op
	key    string
	data   []byte
	update bool
	err    error
}

// Upload sends a local file to key. When key is taken the user is asked
// whether to overwrite it.
func (c *Controller) Upload(localPath, key string) {
	if err := storage.ValidateKey(key); err != nil {
		c.warn("Upload Error", fmt.Sprintf("Failed to upload file: %v", err))
		return
	}
	o := c.begin("upload", key, "Uploading file...")
	c.dispatcher.Go(func() Result {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return &uploadResult{op: o, key: key, err: fmt.Errorf("failed to read %s: %w", localPath, err)}
		}
		err = c.backend.Upload(c.ctx, key, data, storage.ContentTypeFor(key))
		return &uploadResult{op: o, key: key, data: data, err: err}
	})
}

// UploadToFolder uploads a local file into folder under its own name.
func (c *Controller) UploadToFolder(localPath, folder string) {
	c.Upload(localPath, storage.Join(folder, filepath.Base(localPath)))
}

// UploadBytes uploads in-memory content to key with the same
// confirm-overwrite flow as Upload.
func (c *Controller) UploadBytes(key string, data []byte) {
	if err := storage.ValidateKey(key); err != nil {
		c.warn("Upload Error", fmt.Sprintf("Failed to upload file: %v", err))
		return
	}
	o := c.begin("upload", key, "Uploading file...")
	c.dispatcher.Go(func() Result {
		err := c.backend.Upload(c.ctx, key, data, storage.ContentTypeFor(key))
		return &uploadResult{op: o, key: key, data: data, err: err}
	})
}

func (c *Controller) update(key string, data []byte) {
	o := c.begin("update", key, "Updating file...")
	c.dispatcher.Go(func() Result {
		err := c.backend.Update(c.ctx, key, data, storage.ContentTypeFor(key))
		return &uploadResult{op: o, key: key, data: data, update: true, err: err}
	})
}

func (r *uploadResult) Apply(c *Controller) {
	if !r.update && storage.IsAlreadyExists(r.err) {
		// Reported as its own op so progress displays keep waiting for
		// the update that may follow.
		r.op.name = "upload-conflict"
		c.finish(r.op, nil, "File exists: "+r.key, "", "")
		key, data := r.key, r.data
		c.notifier.Confirm("File Exists",
			fmt.Sprintf("File '%s' already exists. Do you want to update it?", key),
			func(ok bool) {
				if ok {
					c.update(key, data)
					return
				}
				c.setStatus("Upload cancelled")
			})
		return
	}
	c.finish(r.op, r.err, statusFor(r.err, "Successfully uploaded: "+r.key, "Upload failed"), "Upload Error", "Failed to upload file")
	if r.err != nil {
		return
	}
	c.notifier.Info("Success", fmt.Sprintf("File uploaded successfully to %s", r.key))
	c.Refresh()
}

// --- download ---

type downloadResult struct {
	op
	path string
	size int
	err  error
}

// Download writes the object at key to localPath, creating parent
// directories as needed.
func (c *Controller) Download(key, localPath string) {
	if c.isFolder(key) {
		c.warn("Invalid Selection", "Cannot download a folder")
		return
	}
	o := c.begin("download", key, "Downloading file...")
	c.dispatcher.Go(func() Result {
		data, err := c.backend.Download(c.ctx, key)
		if err != nil {
			return &downloadResult{op: o, path: localPath, err: err}
		}
		if dir := filepath.Dir(localPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return &downloadResult{op: o, path: localPath, err: fmt.Errorf("failed to create %s: %w", dir, err)}
			}
		}
		if err := diskspace.CheckAvailableSpace(localPath, int64(len(data)), diskspace.DefaultSafetyMargin); err != nil {
			return &downloadResult{op: o, path: localPath, err: err}
		}
		if err := os.WriteFile(localPath, data, 0644); err != nil {
			return &downloadResult{op: o, path: localPath, err: fmt.Errorf("failed to write %s: %w", localPath, err)}
		}
		return &downloadResult{op: o, path: localPath, size: len(data)}
	})
}

func (r *downloadResult) Apply(c *Controller) {
	c.finish(r.op, r.err, statusFor(r.err, "Downloaded: "+r.path, "Download failed"), "Download Error", "Failed to download file")
	if r.err == nil {
		c.notifier.Info("Success", fmt.Sprintf("File downloaded to %s", r.path))
	}
}

// --- view / edit ---

type openResult struct {
	op
	data []byte
	err  error
}

// Open downloads key into the viewer/editor.
func (c *Controller) Open(key string) {
	if c.isFolder(key) {
		c.warn("Invalid Selection", "Cannot view a folder")
		return
	}
	o := c.begin("open", key, "Loading file content...")
	c.dispatcher.Go(func() Result {
		data, err := c.backend.Download(c.ctx, key)
		return &openResult{op: o, data: data, err: err}
	})
}

func (r *openResult) Apply(c *Controller) {
	if r.err != nil {
		c.finish(r.op, r.err, "Failed to load file", "Load Error", "Failed to load file content")
		return
	}
	meta, _ := c.forest.File(pathOf(r.key))
	c.doc = newDocument(r.key, r.data, meta)
	if c.doc.ParseError != nil {
		c.logger.Warn().Err(c.doc.ParseError).Str("key", r.key).Msg("front matter could not be parsed")
	}
	c.bus.PublishDocumentLoaded(c.doc.Key, c.doc.Title, len(r.data))
	c.notifier.DocumentChanged()
	c.finish(r.op, nil, "Viewing: "+c.doc.Name, "", "")
}

type saveResult struct {
	op
	content string
	err     error
}

// Save overwrites the open document with content.
func (c *Controller) Save(content string) {
	if c.doc == nil {
		c.warn("No File", "No file is currently loaded")
		return
	}
	key := c.doc.Key
	o := c.begin("save", key, "Saving changes...")
	c.dispatcher.Go(func() Result {
		err := c.backend.Update(c.ctx, key, []byte(content), storage.ContentTypeFor(key))
		return &saveResult{op: o, content: content, err: err}
	})
}

func (r *saveResult) Apply(c *Controller) {
	c.finish(r.op, r.err, statusFor(r.err, "Changes saved successfully", "Save failed"), "Save Error", "Failed to save file")
	if r.err != nil {
		return
	}
	if c.doc != nil && c.doc.Key == r.key {
		c.doc.Content = r.content
		c.doc.Size = int64(len(r.content))
		if storage.IsMarkdown(r.key) {
			c.doc.parse()
		}
		c.notifier.DocumentChanged()
	}
	c.notifier.Info("Success", "File saved successfully")
	c.Refresh()
}

// Reload discards local edits and downloads the open document again.
func (c *Controller) Reload() {
	if c.doc == nil {
		c.warn("No File", "No file is currently loaded")
		return
	}
	c.Open(c.doc.Key)
}

// CloseDocument clears the viewer/editor.
func (c *Controller) CloseDocument() {
	if c.doc == nil {
		return
	}
	c.doc = nil
	c.notifier.DocumentChanged()
}

// --- delete ---

type deleteResult struct {
	op
	keys  []string
	label string
	err   error
}

// Delete removes one file after confirmation.
func (c *Controller) Delete(key string) {
	if c.isFolder(key) {
		c.warn("Invalid Selection", "Cannot delete a folder this way")
		return
	}
	name := storage.Base(key)
	c.notifier.Confirm("Confirm Delete",
		fmt.Sprintf("Are you sure you want to delete '%s'?\nThis action cannot be undone.", name),
		func(ok bool) {
			if ok {
				c.remove("delete", key, []string{key}, name)
			}
		})
}

// DeleteFolder removes every object under path, empty-folder sentinels
// included, after confirmation.
func (c *Controller) DeleteFolder(path string) {
	p := pathOf(path)
	if !c.isFolder(p) {
		c.warn("Invalid Selection", fmt.Sprintf("No folder named '%s'", path))
		return
	}
	keys := c.keysUnder(p)
	c.notifier.Confirm("Confirm Delete",
		fmt.Sprintf("Delete folder '%s' and its %d object(s)?\nThis action cannot be undone.", p, len(keys)),
		func(ok bool) {
			if ok {
				c.remove("delete-folder", p, keys, p)
			}
		})
}

// keysUnder returns the listed keys inside folder p, as listed.
func (c *Controller) keysUnder(p string) []string {
	var keys []string
	for _, obj := range c.objects {
		n := pathOf(obj.Key)
		if n == p || strings.HasPrefix(n, p+"/") {
			keys = append(keys, obj.Key)
		}
	}
	return keys
}

func (c *Controller) remove(name, key string, keys []string, label string) {
	o := c.begin(name, key, "Deleting...")
	c.dispatcher.Go(func() Result {
		err := c.backend.Remove(c.ctx, keys)
		return &deleteResult{op: o, keys: keys, label: label, err: err}
	})
}

func (r *deleteResult) Apply(c *Controller) {
	c.finish(r.op, r.err, statusFor(r.err, "Deleted: "+r.label, "Delete failed"), "Delete Error", "Failed to delete")
	if r.err != nil {
		return
	}
	if c.doc != nil {
		for _, k := range r.keys {
			if k == c.doc.Key {
				c.CloseDocument()
				break
			}
		}
	}
	c.notifier.Info("Success", fmt.Sprintf("'%s' deleted successfully", r.label))
	c.Refresh()
}

// --- rename ---

type renameResult struct {
	op
	newKey string
	err    error
}

// Rename gives a file a new name in the same folder. Storage has no
// rename, so the object is downloaded, uploaded under the new key and
// removed. Folders cannot be renamed.
func (c *Controller) Rename(key, newName string) {
	if c.isFolder(key) {
		c.warn("Invalid Selection", storage.ErrFolderRename.Error())
		return
	}
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == storage.Base(key) {
		return
	}
	if err := validation.ValidateName(newName); err != nil {
		c.warn("Rename Error", fmt.Sprintf("Failed to rename file: %v", err))
		return
	}
	newKey := storage.Join(storage.Dir(key), newName)
	if err := storage.ValidateKey(newKey); err != nil {
		c.warn("Rename Error", fmt.Sprintf("Failed to rename file: %v", err))
		return
	}
	o := c.begin("rename", key, "Renaming file...")
	c.dispatcher.Go(func() Result {
		data, err := c.backend.Download(c.ctx, key)
		if err != nil {
			return &renameResult{op: o, newKey: newKey, err: err}
		}
		if err := c.backend.Upload(c.ctx, newKey, data, storage.ContentTypeFor(newKey)); err != nil {
			return &renameResult{op: o, newKey: newKey, err: err}
		}
		if err := c.backend.Remove(c.ctx, []string{key}); err != nil {
			return &renameResult{op: o, newKey: newKey, err: fmt.Errorf("copied to %s but could not remove the original: %w", newKey, err)}
		}
		return &renameResult{op: o, newKey: newKey}
	})
}

func (r *renameResult) Apply(c *Controller) {
	oldName, newName := storage.Base(r.key), storage.Base(r.newKey)
	c.finish(r.op, r.err, statusFor(r.err, fmt.Sprintf("Renamed: %s → %s", oldName, newName), "Rename failed"), "Rename Error", "Failed to rename file")
	if r.err != nil {
		return
	}
	if c.doc != nil && c.doc.Key == r.key {
		c.doc.Key = r.newKey
		c.doc.Name = newName
		c.notifier.DocumentChanged()
	}
	c.notifier.Info("Success", fmt.Sprintf("File renamed from '%s' to '%s'", oldName, newName))
	c.Refresh()
}

// --- folders ---

type folderResult struct {
	op
	path string
	err  error
}

// CreateFolder makes path visible as an empty folder by uploading its
// sentinel object.
func (c *Controller) CreateFolder(path string) {
	p := pathOf(strings.TrimSpace(path))
	if p == "" {
		c.warn("Folder Error", "Folder path is required")
		return
	}
	if err := storage.ValidateKey(p); err != nil {
		c.warn("Folder Error", fmt.Sprintf("Failed to create folder: %v", err))
		return
	}
	o := c.begin("mkdir", p, "Creating folder...")
	content := []byte("# This folder was created by " + constants.AppDisplayName + "\n")
	c.dispatcher.Go(func() Result {
		sentinel := storage.SentinelKey(p)
		err := c.backend.Upload(c.ctx, sentinel, content, storage.ContentTypeFor(sentinel))
		if storage.IsAlreadyExists(err) {
			err = nil
		}
		return &folderResult{op: o, path: p, err: err}
	})
}

// CreateSubfolder creates name inside parent.
func (c *Controller) CreateSubfolder(parent, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if err := validation.ValidateName(name); err != nil {
		c.warn("Folder Error", fmt.Sprintf("Invalid subfolder name: %v", err))
		return
	}
	c.CreateFolder(storage.Join(parent, name))
}

func (r *folderResult) Apply(c *Controller) {
	c.finish(r.op, r.err, statusFor(r.err, "Created folder: "+r.path, "Folder creation failed"), "Folder Error", "Failed to create folder")
	if r.err != nil {
		return
	}
	// Open the ancestors so the new folder shows up.
	for dir := storage.Dir(r.path); dir != ""; dir = storage.Dir(dir) {
		c.expansion.Expand(dir)
	}
	c.notifier.Info("Success", fmt.Sprintf("Folder '%s' created successfully", r.path))
	c.Refresh()
}

// --- synchronous helpers ---

// PublicURL returns the shareable URL of a file.
func (c *Controller) PublicURL(key string) (string, error) {
	if c.isFolder(key) {
		return "", fmt.Errorf("no public URL available for folders")
	}
	return c.backend.PublicURL(key)
}

// Toggle flips a folder's expansion and returns the new state.
func (c *Controller) Toggle(path string) bool {
	expanded := c.expansion.Toggle(pathOf(path))
	c.markExpanded(pathOf(path), expanded)
	return expanded
}

// Expand opens a folder.
func (c *Controller) Expand(path string) {
	c.expansion.Expand(pathOf(path))
	c.markExpanded(pathOf(path), true)
}

// Collapse closes a folder.
func (c *Controller) Collapse(path string) {
	c.expansion.Collapse(pathOf(path))
	c.markExpanded(pathOf(path), false)
}

// ExpandAll opens every folder of the current tree.
func (c *Controller) ExpandAll() {
	folders := c.forest.Folders()
	paths := make([]string, len(folders))
	for i, f := range folders {
		paths[i] = f.FullPath
		f.Expanded = true
	}
	c.expansion.ExpandAll(paths)
	c.notifier.TreeChanged()
}

// CollapseAll closes every folder.
func (c *Controller) CollapseAll() {
	c.expansion.CollapseAll()
	for _, f := range c.forest.Folders() {
		f.Expanded = false
	}
	c.notifier.TreeChanged()
}

// markExpanded mirrors an expansion change onto the live tree so no
// rebuild is needed.
func (c *Controller) markExpanded(path string, expanded bool) {
	if f, ok := c.forest.Folder(path); ok {
		f.Expanded = expanded
	}
}

// SetFilter changes the search query shown by View.
func (c *Controller) SetFilter(query string) {
	query = strings.TrimSpace(query)
	if query == c.filter {
		return
	}
	c.filter = query
	c.notifier.TreeChanged()
}

func statusFor(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}
