package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docklite/internal/template"
)

const staticIndexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f0f0f0; padding: 15px; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>Welcome to %s</h1>
    <div class="info">
        <p>This is a static site managed by DockLite.</p>
        <p><strong>Site Path:</strong> <code>%s</code></p>
        <p>You can edit this file to customize your site.</p>
    </div>
</body>
</html>`

const phpIndexTemplate = `<?php
/**
 * %s
 * PHP site managed by DockLite
 * Site path: %s
 */
?>
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title><?php echo '%s'; ?></title>
</head>
<body>
    <h1>Welcome to <?php echo '%s'; ?></h1>
    <p>PHP Version: <?php echo phpversion(); ?></p>
    <p>Site Path: <code>%s</code></p>
</body>
</html>`

const nodeIndexTemplate = `const http = require('http');

const hostname = '0.0.0.0';
const port = process.env.PORT || 3000;

const server = http.createServer((req, res) => {
  res.statusCode = 200;
  res.setHeader('Content-Type', 'text/html');
  res.end(` + "`" + `
    <!DOCTYPE html>
    <html>
      <head><title>%s</title></head>
      <body>
        <h1>Welcome to %s</h1>
        <p>Node.js site managed by DockLite</p>
        <p>Site path: %s</p>
      </body>
    </html>
  ` + "`" + `);
});

server.listen(port, hostname, () => {
  console.log(` + "`" + `Server running at http://${hostname}:${port}/` + "`" + `);
});`

// WriteDefaultFiles seeds a freshly created site directory with a
// minimal working entrypoint for its type.
func WriteDefaultFiles(sitePath, domain, siteType string) error {
	switch siteType {
	case template.TypeStatic:
		content := fmt.Sprintf(staticIndexTemplate, domain, domain, sitePath)
		return writeSiteFile(filepath.Join(sitePath, "index.html"), content)

	case template.TypePHP:
		content := fmt.Sprintf(phpIndexTemplate, domain, sitePath, domain, domain, sitePath)
		return writeSiteFile(filepath.Join(sitePath, "index.php"), content)

	case template.TypeNode:
		pkg := map[string]any{
			"name":        strings.ReplaceAll(domain, ".", "-"),
			"version":     "1.0.0",
			"description": fmt.Sprintf("Node.js site for %s", domain),
			"main":        "index.js",
			"scripts":     map[string]string{"start": "node index.js"},
		}
		data, err := json.MarshalIndent(pkg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode package.json: %w", err)
		}
		if err := writeSiteFile(filepath.Join(sitePath, "package.json"), string(data)); err != nil {
			return err
		}
		content := fmt.Sprintf(nodeIndexTemplate, domain, domain, sitePath)
		return writeSiteFile(filepath.Join(sitePath, "index.js"), content)

	default:
		return fmt.Errorf("no default files for site type %s", siteType)
	}
}

func writeSiteFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
