package typeddata

import (
	"testing"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func buildArticleDescriptor(t *testing.T) protoreflect.MessageDescriptor {
	t.Helper()
	author := protobuilder.NewMessage("Author").
		AddField(protobuilder.NewField("display_name", protobuilder.FieldTypeScalar(protoreflect.StringKind)).SetNumber(1))
	article := protobuilder.NewMessage("Article").
		AddField(protobuilder.NewField("title", protobuilder.FieldTypeScalar(protoreflect.StringKind)).SetNumber(1)).
		AddField(protobuilder.NewField("tags", protobuilder.FieldTypeScalar(protoreflect.StringKind)).SetNumber(2).SetRepeated()).
		AddField(protobuilder.NewField("author", protobuilder.FieldTypeMessage(author)).SetNumber(3))
	file := protobuilder.NewFile("cms/article.proto").
		SetPackageName("cms").
		SetSyntax(protoreflect.Proto3).
		AddMessage(author).
		AddMessage(article)
	fd, err := file.Build()
	require.NoError(t, err)
	return fd.Messages().ByName("Article")
}

func TestMessageProperties(t *testing.T) {
	md := buildArticleDescriptor(t)
	msg := dynamicpb.NewMessage(md)
	msg.Set(md.Fields().ByName("title"), protoreflect.ValueOfString("Hello"))
	tags := msg.Mutable(md.Fields().ByName("tags")).List()
	tags.Append(protoreflect.ValueOfString("go"))
	tags.Append(protoreflect.ValueOfString("cms"))

	data := NewMessage(msg)
	require.Equal(t, "proto:cms.Article", data.DataType())
	require.Equal(t, []string{"title", "tags", "author"}, data.PropertyNames())

	v, ok := data.Property("title")
	require.True(t, ok)
	require.Equal(t, "Hello", v)

	v, ok = data.Property("author")
	require.True(t, ok)
	require.Nil(t, v, "unset message fields are absent")

	_, ok = data.Property("body")
	require.False(t, ok)

	require.True(t, NewDefinition("proto:cms").IsSatisfiedBy(msg))
	require.True(t, NewDefinition("proto:cms.Article").IsSatisfiedBy(msg))
	require.False(t, NewDefinition("proto:cm").IsSatisfiedBy(msg))
	require.False(t, NewDefinition("proto:cms.Art").IsSatisfiedBy(msg))
}

func TestFetchByPathProto(t *testing.T) {
	md := buildArticleDescriptor(t)
	authorMD := md.Fields().ByName("author").Message()

	author := dynamicpb.NewMessage(authorMD)
	author.Set(authorMD.Fields().ByName("display_name"), protoreflect.ValueOfString("Ada"))
	msg := dynamicpb.NewMessage(md)
	msg.Set(md.Fields().ByName("author"), protoreflect.ValueOfMessage(author))

	got, err := FetchByPath(nil, msg, "author.displayName", nil)
	require.NoError(t, err)
	require.Equal(t, "Ada", got)

	_, err = FetchByPath(nil, msg, "author.nickname", nil)
	var perr *PathResolutionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "nickname", perr.Segment)
}
