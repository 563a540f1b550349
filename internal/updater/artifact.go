package updater

import (
	"fmt"
	"regexp"
	"strings"

	"resultsink/internal/umb"
)

// Known artifact types. Each one has its own item-identifier formula and
// field set; anything else is rejected.
const (
	artifactProductmdCompose      = "productmd-compose"
	artifactProductBuild          = "product-build"
	artifactComponentVersion      = "component-version"
	artifactContainerImage        = "container-image"
	artifactRedHatContainerImage  = "redhat-container-image"
	artifactRedHatModule          = "redhat-module"
	artifactRedHatAdvisory        = "redhat-advisory"
	artifactBrewBuild             = "brew-build"
	artifactBrewBuildGroup        = "brew-build-group"
	artifactProductScenario       = "product-scenario"
)

// The NSVC is delimited with ':' per the Fedora CI messages spec.
var nsvcRegexp = regexp.MustCompile(`^(.*):(.*):(.*):(.*)$`)

// buildArtifactData extracts the per-artifact-type result data,
// including the final "item" identifier and "type" tag. Only non-null
// fields are written; absent optional fields are omitted.
func buildArtifactData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	switch itemType {
	case artifactProductmdCompose:
		return composeData(msg, itemType)
	case artifactProductBuild:
		return productBuildData(msg, itemType)
	case artifactComponentVersion:
		return componentVersionData(msg, itemType)
	case artifactContainerImage:
		return containerImageData(msg, itemType)
	case artifactRedHatContainerImage:
		return redhatContainerImageData(msg, itemType)
	case artifactRedHatModule:
		return redhatModuleData(msg, itemType)
	case artifactRedHatAdvisory:
		return redhatAdvisoryData(msg, itemType)
	case artifactBrewBuild:
		return brewBuildData(msg, itemType)
	case artifactBrewBuildGroup:
		return brewBuildGroupData(msg, itemType)
	case artifactProductScenario:
		return productScenarioData(msg, itemType)
	}

	return nil, umb.Invalidf("Unknown artifact type %q", itemType)
}

func put(data map[string]interface{}, key string, value interface{}) {
	if value != nil {
		data[key] = value
	}
}

func composeData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	architecture, err := msg.System("architecture")
	if err != nil {
		return nil, err
	}
	variant := msg.SystemDefault(nil, "variant")

	// Field compose_id in artifacts is deprecated.
	composeID := msg.GetDefault(nil, "artifact", "id")
	if composeID == nil {
		composeID, err = msg.Get("artifact", "compose_id")
		if err != nil {
			return nil, err
		}
	}

	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}
	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}

	variantLabel := "unknown"
	if s, ok := variant.(string); ok && s != "" {
		variantLabel = s
	}
	item := fmt.Sprintf("%v/%s/%v", composeID, variantLabel, architecture)

	data := map[string]interface{}{}
	put(data, "item", item)
	put(data, "log", log)
	put(data, "type", itemType)
	put(data, "productmd.compose.id", composeID)
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	put(data, "system_architecture", architecture)
	put(data, "system_variant", variant)
	put(data, "category", category)
	return data, nil
}

func productBuildData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	product, err := msg.Get("artifact", "name")
	if err != nil {
		return nil, err
	}
	version, err := msg.Get("artifact", "version")
	if err != nil {
		return nil, err
	}
	release, err := msg.Get("artifact", "release")
	if err != nil {
		return nil, err
	}
	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}
	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{}
	put(data, "item", fmt.Sprintf("%v-%v-%v", product, version, release))
	put(data, "product", product)
	put(data, "version", version)
	put(data, "release", release)
	put(data, "log", log)
	put(data, "type", itemType)
	put(data, "system_architecture", msg.SystemDefault(nil, "architecture"))
	put(data, "category", category)
	return data, nil
}

func componentVersionData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	component, err := msg.Get("artifact", "component")
	if err != nil {
		return nil, err
	}
	version, err := msg.Get("artifact", "version")
	if err != nil {
		return nil, err
	}
	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}
	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{}
	put(data, "item", fmt.Sprintf("%v-%v", component, version))
	put(data, "log", log)
	put(data, "type", itemType)
	put(data, "component", component)
	put(data, "version", version)
	put(data, "category", category)
	return data, nil
}

func containerImageData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	repo, err := msg.Get("artifact", "repository")
	if err != nil {
		return nil, err
	}
	digest, err := msg.Get("artifact", "digest")
	if err != nil {
		return nil, err
	}
	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}
	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{}
	put(data, "item", fmt.Sprintf("%v@%v", repo, digest))
	put(data, "log", log)
	put(data, "rebuild", msg.GetDefault(nil, "run", "rebuild"))
	put(data, "xunit", msg.ResultXunit())
	put(data, "type", itemType)
	put(data, "repository", msg.GetDefault(nil, "artifact", "repository"))
	put(data, "digest", msg.GetDefault(nil, "artifact", "digest"))
	put(data, "format", msg.GetDefault(nil, "artifact", "format"))
	put(data, "pull_ref", msg.GetDefault(nil, "artifact", "pull_ref"))
	put(data, "scratch", msg.GetDefault(nil, "artifact", "scratch"))
	put(data, "nvr", msg.GetDefault(nil, "artifact", "nvr"))
	put(data, "issuer", msg.GetDefault(nil, "artifact", "issuer"))
	put(data, "system_os", msg.SystemDefault(nil, "os"))
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	put(data, "system_architecture", msg.SystemDefault(nil, "architecture"))
	put(data, "category", category)
	return data, nil
}

func redhatContainerImageData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	data := map[string]interface{}{"type": itemType}

	required := []struct {
		key  string
		path []string
	}{
		{"item", []string{"artifact", "id"}},
		{"full_names", []string{"artifact", "full_names"}},
		{"issuer", []string{"artifact", "issuer"}},
		{"component", []string{"artifact", "component"}},
		{"namespace", []string{"artifact", "namespace"}},
		{"scratch", []string{"artifact", "scratch"}},
		{"nvr", []string{"artifact", "nvr"}},
		{"source", []string{"artifact", "source"}},
		{"log", []string{"run", "log"}},
	}
	for _, field := range required {
		value, err := msg.Get(field.path...)
		if err != nil {
			return nil, err
		}
		put(data, field.key, value)
	}

	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}
	put(data, "category", category)

	put(data, "brew_task_id", msg.GetDefault(nil, "artifact", "task_id"))
	put(data, "brew_build_id", msg.GetDefault(nil, "artifact", "build_id"))
	put(data, "registry_url", msg.GetDefault(nil, "artifact", "registry_url"))
	put(data, "tag", msg.GetDefault(nil, "artifact", "tag"))
	put(data, "name", msg.GetDefault(nil, "artifact", "name"))
	put(data, "rebuild", msg.GetDefault(nil, "run", "rebuild"))
	return data, nil
}

func redhatModuleData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	rawNSVC, err := msg.Get("artifact", "nsvc")
	if err != nil {
		return nil, err
	}

	nsvcStr, ok := rawNSVC.(string)
	if !ok {
		return nil, umb.Invalidf("Invalid nsvc \"%v\" encountered", rawNSVC)
	}

	groups := nsvcRegexp.FindStringSubmatch(nsvcStr)
	if groups == nil {
		return nil, umb.Invalidf("Invalid nsvc %q encountered", nsvcStr)
	}

	name, stream, version, context := groups[1], groups[2], groups[3], groups[4]

	// The stream name can contain '-', which MBS changes to '_' when
	// importing to koji.
	stream = strings.ReplaceAll(stream, "-", "_")

	nsvc := fmt.Sprintf("%s-%s-%s.%s", name, stream, version, context)

	data := map[string]interface{}{
		"item": nsvc,
		"type": itemType,
		"nsvc": nsvc,
	}

	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}
	put(data, "category", category)

	for _, key := range []string{"context", "name", "stream", "version"} {
		value, err := msg.Get("artifact", key)
		if err != nil {
			return nil, err
		}
		put(data, key, value)
	}

	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}
	put(data, "log", log)

	put(data, "mbs_id", msg.GetDefault(nil, "artifact", "id"))
	put(data, "issuer", msg.GetDefault(nil, "artifact", "issuer"))
	put(data, "rebuild", msg.GetDefault(nil, "run", "rebuild"))
	put(data, "system_os", msg.SystemDefault(nil, "os"))
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	return data, nil
}

func redhatAdvisoryData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	data := map[string]interface{}{"type": itemType}

	required := []struct {
		key  string
		path []string
	}{
		{"item", []string{"artifact", "id"}},
		{"pipeline_id", []string{"pipeline", "id"}},
		{"pipeline_name", []string{"pipeline", "name"}},
		{"log", []string{"run", "log"}},
	}
	for _, field := range required {
		value, err := msg.Get(field.path...)
		if err != nil {
			return nil, err
		}
		put(data, field.key, value)
	}

	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}
	put(data, "category", category)

	put(data, "numeric_id", msg.GetDefault(nil, "artifact", "numeric_id"))
	put(data, "pipeline_build", msg.GetDefault(nil, "pipeline", "build"))
	put(data, "pipeline_stage", msg.GetDefault(nil, "pipeline", "stage", "name"))
	put(data, "log_raw", msg.GetDefault(nil, "run", "log_raw"))
	put(data, "log_stream", msg.GetDefault(nil, "run", "log_stream"))
	put(data, "system_os", msg.SystemDefault(nil, "os"))
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	return data, nil
}

func brewBuildData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	item, err := msg.Get("artifact", "nvr")
	if err != nil {
		return nil, err
	}
	component, err := msg.Get("artifact", "component")
	if err != nil {
		return nil, err
	}
	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}
	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}

	scratch := coerceScratch(msg.GetDefault("", "artifact", "scratch"))

	// Scratch and non-scratch builds are differentiated by type.
	if scratch {
		itemType += "_scratch"
	}

	data := map[string]interface{}{
		"item":    item,
		"type":    itemType,
		"scratch": scratch,
	}
	put(data, "brew_task_id", msg.GetDefault(nil, "artifact", "id"))
	put(data, "category", category)
	put(data, "component", component)
	put(data, "issuer", msg.GetDefault(nil, "artifact", "issuer"))
	put(data, "rebuild", msg.GetDefault(nil, "run", "rebuild"))
	put(data, "log", log)
	put(data, "system_os", msg.SystemDefault(nil, "os"))
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	return data, nil
}

// coerceScratch handles the string booleans some producers send instead
// of real ones. Anything that is not true or "true" (case-insensitive)
// counts as a regular build.
func coerceScratch(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func brewBuildGroupData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	data := map[string]interface{}{"type": itemType}

	required := []struct {
		key  string
		path []string
	}{
		{"item", []string{"artifact", "id"}},
		{"repository", []string{"artifact", "repository"}},
		{"builds", []string{"artifact", "builds"}},
		{"log", []string{"run", "log"}},
	}
	for _, field := range required {
		value, err := msg.Get(field.path...)
		if err != nil {
			return nil, err
		}
		put(data, field.key, value)
	}

	category, err := msg.ResultCategory()
	if err != nil {
		return nil, err
	}
	put(data, "category", category)

	put(data, "rebuild", msg.GetDefault(nil, "run", "rebuild"))
	put(data, "system_os", msg.SystemDefault(nil, "os"))
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	return data, nil
}

func productScenarioData(msg *umb.Message, itemType string) (map[string]interface{}, error) {
	scenario, err := msg.Get("artifact", "id")
	if err != nil {
		return nil, err
	}
	rawProducts, err := msg.Get("artifact", "products")
	if err != nil {
		return nil, err
	}
	log, err := msg.Get("run", "log")
	if err != nil {
		return nil, err
	}

	products, ok := rawProducts.([]interface{})
	if !ok {
		return nil, umb.Invalidf("Expected a list of products, got: %v", rawProducts)
	}

	// The item lists the scenario followed by every product, identified
	// by NVR when available.
	item := []interface{}{scenario}
	productsData := make([]interface{}, 0, len(products))
	for _, rawProduct := range products {
		product, ok := rawProduct.(map[string]interface{})
		if !ok {
			return nil, umb.Invalidf("Expected a product object, got: %v", rawProduct)
		}

		identifier, ok := product["nvr"]
		if !ok {
			identifier, ok = product["id"]
			if !ok {
				return nil, &umb.MissingFieldError{Path: []string{"artifact", "products", "id"}}
			}
		}
		item = append(item, identifier)
		productsData = append(productsData, mustJSON(product))
	}

	data := map[string]interface{}{
		"item":     item,
		"type":     itemType,
		"products": productsData,
	}
	put(data, "log", log)
	put(data, "rebuild", msg.GetDefault(nil, "run", "rebuild"))
	put(data, "system_os", msg.SystemDefault(nil, "os"))
	put(data, "system_provider", msg.SystemDefault(nil, "provider"))
	return data, nil
}
